package ledger

import (
	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// Actor identifies who performed a state-changing operation.
type Actor struct {
	UserID *uuid.UUID
	Type   enums.ActorType
}

// SystemActor marks mutations performed by the platform itself.
var SystemActor = Actor{Type: enums.ActorSystem}
