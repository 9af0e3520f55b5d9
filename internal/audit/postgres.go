package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	auditSchema = `CREATE TABLE IF NOT EXISTS audit_events (
		id            UUID PRIMARY KEY,
		event_type    TEXT NOT NULL,
		actor_type    TEXT NOT NULL,
		actor_id      UUID,
		resource_type TEXT NOT NULL,
		resource_id   UUID,
		action        TEXT NOT NULL,
		status        TEXT NOT NULL,
		ip_address    TEXT,
		user_agent    TEXT,
		request_id    TEXT,
		metadata      JSONB,
		error_message TEXT,
		created_at    TIMESTAMPTZ NOT NULL
	)`

	auditInsert = `
		INSERT INTO audit_events (
			id, event_type, actor_type, actor_id, resource_type, resource_id,
			action, status, ip_address, user_agent, request_id, metadata, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	errAuditSchemaFmt   = "failed to initialize audit schema: %w"
	errAuditMetadataFmt = "failed to encode audit metadata: %w"
	errAuditInsertFmt   = "failed to insert audit event: %w"
)

// PostgresRecorder writes events to the audit_events table
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder makes sure the table exists. The pool is owned by the caller.
func NewPostgresRecorder(ctx context.Context, pool *pgxpool.Pool) (*PostgresRecorder, error) {
	if _, err := pool.Exec(ctx, auditSchema); err != nil {
		return nil, fmt.Errorf(errAuditSchemaFmt, err)
	}
	return &PostgresRecorder{pool: pool}, nil
}

func (r *PostgresRecorder) Record(ctx context.Context, event *Event) error {
	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf(errAuditMetadataFmt, err)
		}
	}

	_, err := r.pool.Exec(ctx, auditInsert,
		event.ID,
		event.EventType,
		event.ActorType,
		event.ActorID,
		event.ResourceType,
		event.ResourceID,
		event.Action,
		event.Status,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		metadataJSON,
		event.ErrorMessage,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf(errAuditInsertFmt, err)
	}
	return nil
}
