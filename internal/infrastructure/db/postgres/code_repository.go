package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

type CodeRepository struct {
	db DB
}

func NewCodeRepository(db DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Replace upserts on phone, so concurrent issuances for one number
// serialise on its unique index and the last writer wins.
func (r *CodeRepository) Replace(ctx context.Context, code *domain.VerificationCode) error {
	const q = `
		INSERT INTO verification_codes (issuance_id, phone, code_hash, issued_at, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (phone) DO UPDATE SET
			issuance_id = EXCLUDED.issuance_id,
			code_hash   = EXCLUDED.code_hash,
			issued_at   = EXCLUDED.issued_at,
			expires_at  = EXCLUDED.expires_at,
			consumed    = FALSE`
	if _, err := r.db.Exec(ctx, q, code.ID, code.PhoneNumber, code.CodeHash, code.IssuedAt, code.ExpiresAt); err != nil {
		return fmt.Errorf("replace code: %w", err)
	}
	return nil
}

func (r *CodeRepository) FindByPhone(ctx context.Context, phone string) (*domain.VerificationCode, error) {
	const q = `
		SELECT issuance_id, phone, code_hash, issued_at, expires_at, consumed
		FROM verification_codes WHERE phone = $1`

	var c domain.VerificationCode
	err := r.db.QueryRow(ctx, q, phone).Scan(&c.ID, &c.PhoneNumber, &c.CodeHash, &c.IssuedAt, &c.ExpiresAt, &c.Consumed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find code: %w", err)
	}
	return &c, nil
}

func (r *CodeRepository) Consume(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE verification_codes SET consumed = TRUE WHERE issuance_id = $1 AND consumed = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CodeRepository) Release(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `UPDATE verification_codes SET consumed = FALSE WHERE issuance_id = $1`, id); err != nil {
		return fmt.Errorf("release code: %w", err)
	}
	return nil
}

func (r *CodeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE issuance_id = $1`, id); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	return nil
}

func (r *CodeRepository) PurgeExpired(ctx context.Context, t time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE consumed OR expires_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("purge codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
