package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mission-service/internal/domain"
)

// AuditRepository stores append-only audit entries.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByTarget(ctx context.Context, targetID string, limit int) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_logs (id, action, actor_id, target_id, target_type, ip_address, user_agent, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		entry.ID,
		entry.Action,
		entry.ActorID,
		entry.TargetID,
		entry.TargetType,
		entry.IPAddress,
		entry.UserAgent,
		entry.Metadata,
		entry.Timestamp,
	)
	return err
}

func (r *auditRepository) ListByTarget(ctx context.Context, targetID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, action, actor_id, target_id, target_type, ip_address, user_agent, metadata, created_at
        FROM audit_logs WHERE target_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := conn(ctx, r.pool).Query(ctx, query, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.ActorID,
			&entry.TargetID,
			&entry.TargetType,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.Metadata,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
