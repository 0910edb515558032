package repository

import (
	"context"
	"testing"
	"time"

	"noun-crm/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Feature: staff-accounts, Property 1: Registration stores bcrypt hashes
func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(email string, password string, firstName string, lastName string) bool {
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				t.Logf("Failed to hash password: %v", err)
				return false
			}

			user := &domain.User{
				ID:           uuid.New(),
				Email:        email,
				PasswordHash: string(hashedPassword),
				FirstName:    firstName,
				LastName:     lastName,
				Role:         domain.RoleStaff,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}

			if err := repo.Create(ctx, user); err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			retrievedUser, err := repo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}

			if retrievedUser.PasswordHash == password {
				t.Logf("Password was stored as plaintext!")
				return false
			}

			if err := bcrypt.CompareHashAndPassword([]byte(retrievedUser.PasswordHash), []byte(password)); err != nil {
				t.Logf("Stored password is not a valid bcrypt hash: %v", err)
				return false
			}

			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			return true
		},
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserRepository_DuplicateEmailAndRoleCount(t *testing.T) {
	resetTables(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	admin := &domain.User{
		ID:           uuid.New(),
		Email:        "owner@noun.local",
		PasswordHash: "hash",
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, repo.Create(ctx, admin))

	dup := *admin
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrUserAlreadyExists)

	count, err := repo.CountByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	resetTables(t)
	users := NewUserRepository(testDB)
	tokens := NewRefreshTokenRepository(testDB)
	ctx := context.Background()

	user := &domain.User{
		ID:           uuid.New(),
		Email:        "barista@noun.local",
		PasswordHash: "hash",
		Role:         domain.RoleStaff,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, users.Create(ctx, user))

	for _, value := range []string{"token-a", "token-b"} {
		require.NoError(t, tokens.Create(ctx, &domain.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     value,
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: time.Now(),
		}))
	}

	var stored string
	require.NoError(t, testDB.QueryRow(`SELECT token_hash FROM refresh_tokens WHERE user_id = $1 LIMIT 1`, user.ID).Scan(&stored))
	assert.Len(t, stored, 64)
	assert.NotContains(t, []string{"token-a", "token-b"}, stored)

	found, err := tokens.FindByToken(ctx, "token-b")
	require.NoError(t, err)
	assert.Equal(t, "token-b", found.Token)
	assert.Equal(t, user.ID, found.UserID)

	require.NoError(t, tokens.RevokeAllForUser(ctx, user.ID))

	_, err = tokens.FindByToken(ctx, "token-a")
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	_, err = tokens.FindByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}
