package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/folioauth/internal/audit"
	"github.com/jmoiron/sqlx"
)

// AuditLog writes audit events into admin_logs. It implements audit.Sink; write failures are
// logged and never reach the request that produced the event.
type AuditLog struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewAuditLog(db *sqlx.DB, logger *slog.Logger) *AuditLog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuditLog{db: db, logger: logger}
}

// AuditRow is one admin_logs row.
type AuditRow struct {
	ID           int64          `db:"id"`
	AdminID      sql.NullInt64  `db:"admin_id"`
	Action       string         `db:"action"`
	ResourceType string         `db:"resource_type"`
	ResourceID   sql.NullString `db:"resource_id"`
	IP           string         `db:"ip"`
	UserAgent    string         `db:"user_agent"`
	Details      string         `db:"details"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (s *AuditLog) Emit(ctx context.Context, event audit.Event) {
	if err := s.Insert(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit write failed", "action", event.Action, "error", err)
	}
}

// Insert stores event. Success and reason are folded into the details JSON.
func (s *AuditLog) Insert(ctx context.Context, event audit.Event) error {
	details := make(map[string]any, len(event.Details)+2)
	for k, v := range event.Details {
		details[k] = v
	}
	details["success"] = event.Success
	if event.Reason != "" {
		details["reason"] = event.Reason
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	resourceType := event.ResourceType
	if resourceType == "" {
		resourceType = "auth"
	}

	var adminID, resourceID any
	if event.AdminID > 0 {
		adminID = event.AdminID
	}
	if event.ResourceID != "" {
		resourceID = event.ResourceID
	}

	q := s.db.Rebind(`INSERT INTO admin_logs (admin_id, action, resource_type, resource_id, ip, user_agent, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, adminID, event.Action, resourceType, resourceID,
		event.IP, event.UserAgent, string(payload), ts.UTC()); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// Recent returns the newest limit rows, optionally filtered by action.
func (s *AuditLog) Recent(ctx context.Context, action string, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, admin_id, action, resource_type, resource_id, ip, user_agent, details, created_at FROM admin_logs`
	args := []any{}
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var rows []AuditRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return rows, nil
}
