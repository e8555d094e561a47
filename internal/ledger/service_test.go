package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.StatusHistory) error
	listFn   func(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.StatusHistory) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) ListByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error) {
	if f.listFn != nil {
		return f.listFn(ctx, tenantID, orderID)
	}
	return nil, nil
}

func TestService_Record(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	actor := uuid.New()
	input := RecordEntryInput{
		TenantID:    uuid.New(),
		OrderID:     uuid.New(),
		ActorUserID: &actor,
		ActorType:   enums.ActorOps,
		FromStatus:  enums.OrderStatusCreated,
		ToStatus:    enums.OrderStatusAssigned,
		Metadata:    map[string]any{"route_id": uuid.NewString()},
	}

	var created *models.StatusHistory
	repo.createFn = func(ctx context.Context, entry *models.StatusHistory) error {
		created = entry
		return nil
	}

	got, err := svc.Record(context.Background(), input)
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if created == nil {
		t.Fatalf("expected repository create call")
	}
	if got.FromStatus != enums.OrderStatusCreated || got.ToStatus != enums.OrderStatusAssigned {
		t.Fatalf("unexpected statuses: %s -> %s", got.FromStatus, got.ToStatus)
	}
	if got.ActorType != enums.ActorOps {
		t.Fatalf("unexpected actor type %s", got.ActorType)
	}
}

func TestService_RecordAllowsEmptyFromStatus(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.Record(context.Background(), RecordEntryInput{
		TenantID:  uuid.New(),
		OrderID:   uuid.New(),
		ActorType: enums.ActorSystem,
		ToStatus:  enums.OrderStatusCreated,
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	cases := []struct {
		name  string
		input RecordEntryInput
	}{
		{"missing tenant", RecordEntryInput{OrderID: uuid.New(), ActorType: enums.ActorOps, ToStatus: enums.OrderStatusCreated}},
		{"missing order", RecordEntryInput{TenantID: uuid.New(), ActorType: enums.ActorOps, ToStatus: enums.OrderStatusCreated}},
		{"bad actor", RecordEntryInput{TenantID: uuid.New(), OrderID: uuid.New(), ActorType: "ROBOT", ToStatus: enums.OrderStatusCreated}},
		{"bad target", RecordEntryInput{TenantID: uuid.New(), OrderID: uuid.New(), ActorType: enums.ActorOps, ToStatus: "LOST"}},
	}
	for _, tc := range cases {
		if _, err := svc.Record(context.Background(), tc.input); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
