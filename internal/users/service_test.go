package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/auth"
	"github.com/cargoflow/backend/pkg/config"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS users`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  tenant_id TEXT,
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'OPS_DISPATCHER',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

type fakeDriverLookup struct {
	driver *models.Driver
}

func (f *fakeDriverLookup) FindByUserID(_ context.Context, tenantID, userID uuid.UUID) (*models.Driver, error) {
	if f.driver != nil && f.driver.TenantID == tenantID && f.driver.UserID != nil && *f.driver.UserID == userID {
		return f.driver, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "cargoflow-test", ExpirationMinutes: 30}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func newUserTestService(t *testing.T, conn *gorm.DB, lookup driverLookup) Service {
	t.Helper()
	if lookup == nil {
		lookup = &fakeDriverLookup{}
	}
	svc, err := NewService(NewRepository(conn), lookup, testJWTConfig(), testPasswordConfig())
	require.NoError(t, err)
	return svc
}

func TestCreateAndLogin(t *testing.T) {
	conn := setupUserTestDB(t)
	svc := newUserTestService(t, conn, nil)
	tenantID := uuid.New()

	user, err := svc.Create(context.Background(), CreateInput{
		TenantID: tenantID,
		Email:    "Dispatcher@Example.com",
		Password: "correct horse battery",
		FullName: "Priya Nair",
		Role:     enums.RoleOpsDispatcher,
	})
	require.NoError(t, err)
	assert.Equal(t, "dispatcher@example.com", user.Email)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	result, err := svc.Login(context.Background(), LoginInput{Email: "dispatcher@example.com", Password: "correct horse battery"})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	assert.Nil(t, result.DriverID)

	claims, err := auth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, enums.RoleOpsDispatcher, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	conn := setupUserTestDB(t)
	svc := newUserTestService(t, conn, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		TenantID: uuid.New(),
		Email:    "ops@example.com",
		Password: "right password",
		FullName: "Priya Nair",
		Role:     enums.RoleOpsAdmin,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Email: "ops@example.com", Password: "wrong password"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "anything"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginInactiveUserRejected(t *testing.T) {
	conn := setupUserTestDB(t)
	svc := newUserTestService(t, conn, nil)

	user, err := svc.Create(context.Background(), CreateInput{
		TenantID: uuid.New(),
		Email:    "former@example.com",
		Password: "some password",
		FullName: "Former Employee",
		Role:     enums.RoleOpsDispatcher,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	_, err = svc.Login(context.Background(), LoginInput{Email: "former@example.com", Password: "some password"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestDriverLoginCarriesDriverID(t *testing.T) {
	conn := setupUserTestDB(t)
	tenantID := uuid.New()

	lookup := &fakeDriverLookup{}
	svc := newUserTestService(t, conn, lookup)

	user, err := svc.Create(context.Background(), CreateInput{
		TenantID: tenantID,
		Email:    "driver@example.com",
		Password: "driver password",
		FullName: "Ramesh Patil",
		Role:     enums.RoleDriver,
	})
	require.NoError(t, err)

	driverID := uuid.New()
	lookup.driver = &models.Driver{ID: driverID, TenantID: tenantID, UserID: &user.ID}

	result, err := svc.Login(context.Background(), LoginInput{Email: "driver@example.com", Password: "driver password"})
	require.NoError(t, err)
	require.NotNil(t, result.DriverID)
	assert.Equal(t, driverID, *result.DriverID)

	claims, err := auth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, claims.DriverID)
	assert.Equal(t, driverID, *claims.DriverID)
}

func TestDuplicateEmailRejected(t *testing.T) {
	conn := setupUserTestDB(t)
	svc := newUserTestService(t, conn, nil)

	input := CreateInput{
		TenantID: uuid.New(),
		Email:    "dup@example.com",
		Password: "a strong password",
		FullName: "First User",
		Role:     enums.RoleOpsDispatcher,
	}
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}
