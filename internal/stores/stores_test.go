package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/folioauth/internal/audit"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenAndMigrate(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_time_format=sqlite", sqliteDSN(""))
	assert.Equal(t, "file.db?cache=shared&_time_format=sqlite", sqliteDSN("file.db?cache=shared"))
	assert.Equal(t, "x.db?_time_format=sqlite", sqliteDSN("x.db?_time_format=sqlite"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestAdminsCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	admins := NewAdmins(openTestDB(t))

	a := &Admin{Username: "alice", Email: "alice@example.com", PasswordHash: "$argon2id$x", Role: "admin", IsActive: true}
	require.NoError(t, admins.Create(ctx, a))
	require.NotZero(t, a.ID)

	byName, err := admins.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.ID)
	assert.Equal(t, "admin", byName.Role)
	assert.True(t, byName.IsActive)

	byID, err := admins.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = admins.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrAdminNotFound)

	err = admins.Create(ctx, &Admin{Username: "alice", Email: "a2@example.com", PasswordHash: "h", Role: "editor"})
	assert.ErrorIs(t, err, ErrAdminExists)
}

func TestAdminsCreateRejectsUnknownRole(t *testing.T) {
	admins := NewAdmins(openTestDB(t))
	err := admins.Create(context.Background(), &Admin{Username: "x", Email: "x@example.com", PasswordHash: "h", Role: "root"})
	assert.ErrorIs(t, err, ErrAdminRole)

	err = admins.Create(context.Background(), &Admin{Username: "x", Role: "editor"})
	assert.ErrorIs(t, err, ErrAdminMalformed)
}

func TestAdminsSetActive(t *testing.T) {
	ctx := context.Background()
	admins := NewAdmins(openTestDB(t))
	a := &Admin{Username: "carol", Email: "c@example.com", PasswordHash: "h", Role: "editor", IsActive: true}
	require.NoError(t, admins.Create(ctx, a))

	require.NoError(t, admins.SetActive(ctx, a.ID, false))
	got, err := admins.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, admins.SetActive(ctx, 9999, true), ErrAdminNotFound)
}

func TestAdminsQueryErrorIsNotNotFound(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT (.+) FROM admin_users WHERE username").
		WithArgs("alice").
		WillReturnError(errors.New("connection reset"))

	admins := NewAdmins(sqlx.NewDb(mockDB, "sqlmock"))
	_, err = admins.GetByUsername(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAdminNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogInsertAndRecent(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog(openTestDB(t), nil)

	log.Emit(ctx, audit.Event{
		Timestamp: time.Now(),
		Action:    "LOGIN_FAILED_INVALID_PASSWORD",
		IP:        "9.9.9.9",
		UserAgent: "curl/8",
		Reason:    "invalid_credentials",
		Details:   map[string]string{"username": "bob"},
	})
	log.Emit(ctx, audit.Event{Action: "LOGIN_SUCCESS", AdminID: 0, Success: true})

	rows, err := log.Recent(ctx, "LOGIN_FAILED_INVALID_PASSWORD", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "auth", rows[0].ResourceType)
	assert.Equal(t, "9.9.9.9", rows[0].IP)
	assert.False(t, rows[0].AdminID.Valid)
	assert.Contains(t, rows[0].Details, `"username":"bob"`)
	assert.Contains(t, rows[0].Details, `"success":false`)

	all, err := log.Recent(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "LOGIN_SUCCESS", all[0].Action)
}
