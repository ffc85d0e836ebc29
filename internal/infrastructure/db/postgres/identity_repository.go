package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

const identityColumns = `id, phone, display_name, role, approved, created_at, updated_at`

type IdentityRepository struct {
	db DB
}

func NewIdentityRepository(db DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) FindByPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE phone = $1`, phone)
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	const q = `INSERT INTO identities (` + identityColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, q,
		identity.ID, identity.PhoneNumber, identity.DisplayName, string(identity.Role),
		identity.Approved, identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdentityExists
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (r *IdentityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	const q = `UPDATE identities SET display_name = $2, role = $3, approved = $4, updated_at = $5 WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, identity.ID, identity.DisplayName, string(identity.Role), identity.Approved, identity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *IdentityRepository) findOne(ctx context.Context, q string, arg string) (*domain.Identity, error) {
	var (
		i    domain.Identity
		role string
	)
	err := r.db.QueryRow(ctx, q, arg).Scan(&i.ID, &i.PhoneNumber, &i.DisplayName, &role, &i.Approved, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	i.Role = domain.Role(role)
	return &i, nil
}
