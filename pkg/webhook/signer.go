package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cargoflow/backend/pkg/db/models"
)

// SignatureHeader carries the HMAC-SHA256 digest of the request body.
const SignatureHeader = "X-CargoFlow-Signature"

// EventHeader carries the event type so receivers can route before parsing.
const EventHeader = "X-CargoFlow-Event"

// Envelope is the JSON body delivered to tenant webhook endpoints. Receivers
// deduplicate on EventID; deliveries are at-least-once.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Tenant    string          `json:"tenant"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

// BuildEnvelope serializes an event into the delivery body.
func BuildEnvelope(event *models.Event, tenantSlug string) ([]byte, error) {
	env := Envelope{
		EventID:   event.ID.String(),
		EventType: string(event.EventType),
		Tenant:    tenantSlug,
		Payload:   event.Payload,
		Timestamp: event.CreatedAt.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook envelope: %w", err)
	}
	return body, nil
}

// Sign computes the signature header value for a body and tenant secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
