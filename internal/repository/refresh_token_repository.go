package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/student-auth/internal/domain"
)

// RefreshTokenRepository persists issued refresh tokens.
type RefreshTokenRepository interface {
	Save(ctx context.Context, token *domain.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	FindValid(ctx context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error)
	RevokeAll(ctx context.Context, userID int64) (int64, error)
	RevokeOne(ctx context.Context, token string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// Rotate revokes every token of userID and stores token in one transaction.
	Rotate(ctx context.Context, userID int64, token *domain.RefreshToken) error
}

type refreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository instantiates repository.
func NewRefreshTokenRepository(db DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

const (
	insertRefreshToken = `
        INSERT INTO refresh_tokens (token, user_id, expires_at, revoked, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	revokeAllRefreshTokens = `
        UPDATE refresh_tokens SET revoked = TRUE
        WHERE user_id = $1 AND revoked = FALSE`
)

func (r *refreshTokenRepository) Save(ctx context.Context, token *domain.RefreshToken) error {
	return save(ctx, r.db, token)
}

func save(ctx context.Context, q querier, token *domain.RefreshToken) error {
	return q.QueryRow(ctx, insertRefreshToken,
		token.Token,
		token.UserID,
		token.ExpiresAt,
		token.Revoked,
		token.CreatedAt,
	).Scan(&token.ID)
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	const query = `
        SELECT id, token, user_id, expires_at, revoked, created_at
        FROM refresh_tokens WHERE token=$1`

	var rt domain.RefreshToken
	if err := r.db.QueryRow(ctx, query, token).Scan(
		&rt.ID,
		&rt.Token,
		&rt.UserID,
		&rt.ExpiresAt,
		&rt.Revoked,
		&rt.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *refreshTokenRepository) FindValid(ctx context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error) {
	const query = `
        SELECT id, token, user_id, expires_at, revoked, created_at
        FROM refresh_tokens
        WHERE user_id=$1 AND revoked = FALSE AND expires_at > $2
        ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.RefreshToken
	for rows.Next() {
		var rt domain.RefreshToken
		if err := rows.Scan(&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.Revoked, &rt.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, rt)
	}
	return tokens, rows.Err()
}

func (r *refreshTokenRepository) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, revokeAllRefreshTokens, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// RevokeOne revokes a single token. Unknown tokens are not an error.
func (r *refreshTokenRepository) RevokeOne(ctx context.Context, token string) (int64, error) {
	const query = `UPDATE refresh_tokens SET revoked = TRUE WHERE token=$1`
	cmd, err := r.db.Exec(ctx, query, token)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *refreshTokenRepository) Rotate(ctx context.Context, userID int64, token *domain.RefreshToken) error {
	return withTx(ctx, r.db, "rotate", func(tx pgx.Tx) error {
		return rotate(ctx, tx, userID, token)
	})
}

func rotate(ctx context.Context, tx pgx.Tx, userID int64, token *domain.RefreshToken) error {
	if _, err := tx.Exec(ctx, revokeAllRefreshTokens, userID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	if err := save(ctx, tx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}
