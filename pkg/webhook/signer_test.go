package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignDeterministic(t *testing.T) {
	body := []byte(`{"event_id":"abc"}`)
	first := Sign("topsecret", body)
	second := Sign("topsecret", body)

	assert.Equal(t, first, second)
	assert.Equal(t, "sha256=", first[:7])

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(body)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), first)
}

func TestSignDiffersPerSecret(t *testing.T) {
	body := []byte(`{"event_id":"abc"}`)
	assert.NotEqual(t, Sign("secret-a", body), Sign("secret-b", body))
}

func TestBuildEnvelope(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	event := &models.Event{
		ID:        uuid.New(),
		EventType: enums.EventOrderCreated,
		Payload:   json.RawMessage(`{"order_id":"x","status":"CREATED"}`),
		CreatedAt: created,
	}

	body, err := BuildEnvelope(event, "acme-logistics")
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, event.ID.String(), env.EventID)
	assert.Equal(t, "order.created", env.EventType)
	assert.Equal(t, "acme-logistics", env.Tenant)
	assert.Equal(t, "2026-03-14T09:26:53Z", env.Timestamp)
	assert.JSONEq(t, `{"order_id":"x","status":"CREATED"}`, string(env.Payload))
}
