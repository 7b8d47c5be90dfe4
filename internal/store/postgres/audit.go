package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// AuditRepo implements audit.Store.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phishing_audit_log
			(id, action, entity_type, entity_id, actor, actor_ip, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, e.Action, e.EntityType, e.EntityID, e.Actor,
		nullIfEmpty(e.ActorIP), nullIfEmpty(e.Details), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *AuditRepo) List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM phishing_audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, entity_type, entity_id, actor,
		       COALESCE(actor_ip,''), COALESCE(details,''), created_at
		FROM phishing_audit_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID,
			&e.Actor, &e.ActorIP, &e.Details, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
