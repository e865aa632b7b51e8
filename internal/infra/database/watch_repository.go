package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eladlevy/leadgate/internal/entity"
)

type WatchRepository struct {
	DB *sql.DB
}

func NewWatchRepository(db *sql.DB) *WatchRepository {
	return &WatchRepository{DB: db}
}

func (r *WatchRepository) Get(ctx context.Context, accountEmail string) (*entity.WatchSubscription, error) {
	query := `
		SELECT account_email, COALESCE(history_id, ''), expiration, state, updated_at
		FROM watch_subscriptions
		WHERE account_email = $1
	`
	sub := &entity.WatchSubscription{}
	err := r.DB.QueryRowContext(ctx, query, accountEmail).Scan(
		&sub.AccountEmail,
		&sub.HistoryID,
		&sub.Expiration,
		&sub.State,
		&sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *WatchRepository) Save(ctx context.Context, sub *entity.WatchSubscription) error {
	query := `
		INSERT INTO watch_subscriptions (account_email, history_id, expiration, state, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_email)
		DO UPDATE SET
			history_id = EXCLUDED.history_id,
			expiration = EXCLUDED.expiration,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.DB.ExecContext(
		ctx,
		query,
		sub.AccountEmail,
		nullString(sub.HistoryID),
		sub.Expiration,
		sub.State,
		sub.UpdatedAt,
	)
	return err
}

func (r *WatchRepository) UpdateHistoryID(ctx context.Context, accountEmail, historyID string) error {
	_, err := r.DB.ExecContext(
		ctx,
		`UPDATE watch_subscriptions SET history_id = $2, updated_at = NOW() WHERE account_email = $1`,
		accountEmail,
		historyID,
	)
	return err
}
