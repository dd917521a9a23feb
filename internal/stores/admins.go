package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrAdminNotFound  = errors.New("admin not found")
	ErrAdminExists    = errors.New("admin username already taken")
	ErrAdminRole      = errors.New("unknown admin role")
	ErrAdminMalformed = errors.New("admin record incomplete")
)

// Roles accepted by the admin_users CHECK constraint.
var AdminRoles = []string{"superadmin", "admin", "editor"}

// Admin is one admin_users row.
type Admin struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Admins reads and provisions admin_users rows.
type Admins struct {
	db *sqlx.DB
}

func NewAdmins(db *sqlx.DB) *Admins {
	return &Admins{db: db}
}

const adminColumns = `id, username, email, password_hash, role, is_active, created_at, updated_at`

func (s *Admins) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	return s.getOne(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE username = ?`, username)
}

func (s *Admins) GetByID(ctx context.Context, id int64) (*Admin, error) {
	return s.getOne(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE id = ?`, id)
}

func (s *Admins) getOne(ctx context.Context, query string, arg any) (*Admin, error) {
	var a Admin
	if err := s.db.GetContext(ctx, &a, s.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}
	return &a, nil
}

// Create inserts a new admin and fills in ID and timestamps. The password hash must already be
// computed by the caller.
func (s *Admins) Create(ctx context.Context, a *Admin) error {
	if a.Username == "" || a.Email == "" || a.PasswordHash == "" {
		return ErrAdminMalformed
	}
	if !validRole(a.Role) {
		return fmt.Errorf("%w: %q", ErrAdminRole, a.Role)
	}
	if _, err := s.GetByUsername(ctx, a.Username); err == nil {
		return ErrAdminExists
	} else if !errors.Is(err, ErrAdminNotFound) {
		return err
	}

	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	q := s.db.Rebind(`INSERT INTO admin_users (username, email, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowxContext(ctx, q, a.Username, a.Email, a.PasswordHash, a.Role, a.IsActive, now, now).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAdminExists
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// SetActive flips is_active. Existing sessions are left alone; the next refresh rejects them.
func (s *Admins) SetActive(ctx context.Context, id int64, active bool) error {
	q := s.db.Rebind(`UPDATE admin_users SET is_active = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAdminNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash, used when a legacy hash is upgraded on login.
func (s *Admins) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	q := s.db.Rebind(`UPDATE admin_users SET password_hash = ?, updated_at = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, q, hash, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

func validRole(role string) bool {
	for _, r := range AdminRoles {
		if r == role {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
