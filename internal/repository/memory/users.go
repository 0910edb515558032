package memory

import (
	"context"
	"strings"

	"noun-crm/internal/domain"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
)

type userRepository struct {
	access
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.write(func(st *state) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return repository.ErrUserAlreadyExists
			}
		}
		u := *user
		st.users[u.ID] = &u
		return nil
	})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.read(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				cp := *u
				out = &cp
				return nil
			}
		}
		return repository.ErrUserNotFound
	})
	return out, err
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := r.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		cp := *u
		out = &cp
		return nil
	})
	return out, err
}

func (r *userRepository) CountByRole(ctx context.Context, role string) (int, error) {
	count := 0
	err := r.read(func(st *state) error {
		for _, u := range st.users {
			if u.Role == role {
				count++
			}
		}
		return nil
	})
	return count, err
}

type refreshTokenRepository struct {
	access
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	return r.write(func(st *state) error {
		t := *token
		st.tokens[t.Token] = &t
		return nil
	})
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var out *domain.RefreshToken
	err := r.read(func(st *state) error {
		t, ok := st.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		if t.Revoked {
			return repository.ErrRefreshTokenRevoked
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	return r.write(func(st *state) error {
		t, ok := st.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		revoked := *t
		revoked.Revoked = true
		st.tokens[token] = &revoked
		return nil
	})
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.write(func(st *state) error {
		for key, t := range st.tokens {
			if t.UserID == userID && !t.Revoked {
				revoked := *t
				revoked.Revoked = true
				st.tokens[key] = &revoked
			}
		}
		return nil
	})
}
