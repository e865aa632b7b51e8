package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eladlevy/leadgate/internal/entity"
)

type TokenRepository struct {
	DB *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

func (r *TokenRepository) Get(ctx context.Context, accountEmail string) (*entity.TokenSet, error) {
	query := `
		SELECT account_email, access_token, refresh_token, expiry
		FROM token_sets
		WHERE account_email = $1
	`
	set := &entity.TokenSet{}
	err := r.DB.QueryRowContext(ctx, query, accountEmail).Scan(
		&set.AccountEmail,
		&set.AccessToken,
		&set.RefreshToken,
		&set.Expiry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (r *TokenRepository) Save(ctx context.Context, set *entity.TokenSet) error {
	query := `
		INSERT INTO token_sets (account_email, access_token, refresh_token, expiry, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account_email)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expiry = EXCLUDED.expiry,
			updated_at = NOW()
	`
	_, err := r.DB.ExecContext(
		ctx,
		query,
		set.AccountEmail,
		set.AccessToken,
		set.RefreshToken,
		set.Expiry,
	)
	return err
}
