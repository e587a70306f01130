package shared

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry represents a record stored in audit_logs.
type AuditEntry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, metaJSON, entry.At)
	return err
}

// RecordDeniedAccess logs an authorization denial with the unmet permission
// list for later review.
func (l *AuditLogger) RecordDeniedAccess(ctx context.Context, userID int64, path string, required []string) error {
	return l.Record(ctx, AuditEntry{
		ActorID:  userID,
		Action:   "access.denied",
		Entity:   "route",
		EntityID: path,
		Meta: map[string]any{
			"required_permissions": required,
		},
	})
}

// RecordMutation logs a role/permission model change by an admin actor.
func (l *AuditLogger) RecordMutation(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) error {
	return l.Record(ctx, AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
