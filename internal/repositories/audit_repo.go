package repositories

import (
	"context"
	"encoding/json"

	"github.com/goongpt/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Record(ctx context.Context, e models.AuditEvent) error {
	var meta []byte
	if e.Meta != nil {
		meta, _ = json.Marshal(e.Meta)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_events (user_id, wallet_address, action, ip, meta)
		VALUES ($1, $2, $3, $4, $5)
	`, e.UserID, e.WalletAddress, e.Action, e.IP, meta)
	return err
}
