package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"haulr-dispatch/internal/models"
)

// Dispatcher is an office account that logs in with email and password
type Dispatcher struct {
	ID        string `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	Password  string `db:"password" json:"-"`
	Name      string `db:"name" json:"name"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}

// AccountRepo reads dispatcher accounts and manages device push tokens
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// DispatcherByEmail returns models.ErrNotFound when no account uses email
func (r *AccountRepo) DispatcherByEmail(ctx context.Context, email string) (*Dispatcher, error) {
	var d Dispatcher
	err := r.db.GetContext(ctx, &d, `
		SELECT id, email, password, name, created_at
		FROM dispatchers
		WHERE LOWER(email) = LOWER($1)
	`, strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dispatcher: %w", err)
	}
	return &d, nil
}

// SaveDeviceToken registers token for userID, moving it if another user held it
func (r *AccountRepo) SaveDeviceToken(ctx context.Context, userID, token, platform string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
	`, userID, token, platform)
	if err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

// DeviceTokensFor lists the push tokens registered by userID
func (r *AccountRepo) DeviceTokensFor(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	if err := r.db.SelectContext(ctx, &tokens, `SELECT token FROM device_tokens WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	return tokens, nil
}
