package vehicles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
)

func setupVehicleTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS vehicles`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE vehicles (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  plate_number TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'VAN',
  capacity_kg INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  UNIQUE (tenant_id, plate_number)
);`).Error)
	return db
}

func newVehicleTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestCreateVehicle(t *testing.T) {
	conn := setupVehicleTestDB(t)
	svc := newVehicleTestService(t, conn)

	vehicle, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		PlateNumber: "MH12AB1234",
		Type:        "VAN",
		CapacityKG:  800,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.VehicleVan, vehicle.Type)
	assert.True(t, vehicle.IsActive)
}

func TestCreateVehicleRejectsUnknownType(t *testing.T) {
	conn := setupVehicleTestDB(t)
	svc := newVehicleTestService(t, conn)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		PlateNumber: "MH12AB1234",
		Type:        "HOVERCRAFT",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestPlateUniquePerTenant(t *testing.T) {
	conn := setupVehicleTestDB(t)
	svc := newVehicleTestService(t, conn)
	tenantID := uuid.New()

	_, err := svc.Create(context.Background(), tenantID, CreateInput{PlateNumber: "MH12AB1234", Type: "VAN"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenantID, CreateInput{PlateNumber: "MH12AB1234", Type: "TRUCK"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	// Same plate under another tenant is allowed.
	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{PlateNumber: "MH12AB1234", Type: "VAN"})
	assert.NoError(t, err)
}

func TestUpdateVehicle(t *testing.T) {
	conn := setupVehicleTestDB(t)
	svc := newVehicleTestService(t, conn)
	tenantID := uuid.New()

	vehicle, err := svc.Create(context.Background(), tenantID, CreateInput{PlateNumber: "MH14XY9999", Type: "TEMPO", CapacityKG: 500})
	require.NoError(t, err)

	capacity := 650
	inactive := false
	updated, err := svc.Update(context.Background(), tenantID, vehicle.ID, UpdateInput{CapacityKG: &capacity, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 650, updated.CapacityKG)
	assert.False(t, updated.IsActive)

	_, err = svc.GetByID(context.Background(), uuid.New(), vehicle.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
