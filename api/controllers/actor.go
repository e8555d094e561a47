package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/internal/ledger"
	"github.com/cargoflow/backend/pkg/enums"
)

func opsActorFromContext(ctx context.Context) ledger.Actor {
	userID := middleware.UserIDFromContext(ctx)
	return ledger.Actor{UserID: &userID, Type: enums.ActorOps}
}

func driverActorFromContext(ctx context.Context) ledger.Actor {
	userID := middleware.UserIDFromContext(ctx)
	return ledger.Actor{UserID: &userID, Type: enums.ActorDriver}
}

func pathUUID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
