package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"noun-crm/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
)

// RefreshTokenRepository stores refresh tokens by digest; the token string
// itself never reaches the database.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// FindByToken returns ErrRefreshTokenRevoked for revoked tokens
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type refreshTokenRepository struct {
	db DBTX
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db DBTX) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// tokenDigest is the hex SHA-256 of a refresh token
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, tokenDigest(token.Token), token.ExpiresAt, token.CreatedAt, token.Revoked,
	)
	if err != nil {
		if isUniqueViolation(err, "refresh_tokens_token_hash_key") {
			return fmt.Errorf("refresh token already issued: %w", err)
		}
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	found := &domain.RefreshToken{Token: token}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE token_hash = $1`,
		tokenDigest(token),
	).Scan(&found.ID, &found.UserID, &found.ExpiresAt, &found.CreatedAt, &found.Revoked)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrRefreshTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	case found.Revoked:
		return nil, ErrRefreshTokenRevoked
	}
	return found, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`,
		tokenDigest(token),
	)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return expectOneRow(result, ErrRefreshTokenNotFound)
}

// RevokeAllForUser revokes every live refresh token of a user
func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}
