package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

// TokenIssuer is the iss claim of every access token
const TokenIssuer = "noun-crm"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// TokenConfig holds the JWT signing secret and token lifetimes
type TokenConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// UserService defines the staff account operations
type UserService interface {
	// Register creates a staff account
	Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error)
	// EnsureAdmin creates the admin account unless one already exists
	EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Claims are the access token claims; Subject repeats UserID.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

type userService struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	cfg    TokenConfig
	parser *jwt.Parser
}

// NewUserService creates a new instance of UserService
func NewUserService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	cfg TokenConfig,
) UserService {
	if cfg.AccessExpiry <= 0 {
		cfg.AccessExpiry = 15 * time.Minute
	}
	if cfg.RefreshExpiry <= 0 {
		cfg.RefreshExpiry = 7 * 24 * time.Hour
	}
	return &userService{
		users:  users,
		tokens: tokens,
		cfg:    cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(TokenIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error) {
	return s.createUser(ctx, &domain.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      domain.RoleStaff,
	}, password)
}

func (s *userService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	admins, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}
	if admins > 0 {
		return nil, nil
	}
	return s.createUser(ctx, &domain.User{
		Email:     email,
		FirstName: "Store",
		LastName:  "Admin",
		Role:      domain.RoleAdmin,
	}, password)
}

// createUser fills in id, hash and timestamps of user and stores it
func (s *userService) createUser(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	user.Email = normalizeEmail(user.Email)

	_, err := s.users.FindByEmail(ctx, user.Email)
	switch {
	case err == nil:
		return nil, repository.ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user.ID = uuid.New()
	user.PasswordHash = string(hash)
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login checks the password and issues an access and a refresh token. Unknown
// emails and wrong passwords fail alike.
func (s *userService) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	access, err := s.signAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return access, refresh, user, nil
}

// Logout revokes the refresh token; unknown tokens count as logged out
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokens.Revoke(ctx, refreshToken)
	if err == nil || errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return nil
	}
	return fmt.Errorf("failed to revoke refresh token: %w", err)
}

// RefreshToken mints a new access token from a live refresh token
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	stored, err := s.tokens.FindByToken(ctx, refreshToken)
	switch {
	case errors.Is(err, repository.ErrRefreshTokenNotFound), errors.Is(err, repository.ErrRefreshTokenRevoked):
		return "", ErrInvalidToken
	case err != nil:
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	case time.Now().After(stored.ExpiresAt):
		return "", ErrTokenExpired
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	return s.signAccessToken(user)
}

// ValidateToken verifies signature, issuer and expiry of an access token
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) signAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}).SignedString([]byte(s.cfg.Secret))
}

// issueRefreshToken stores a new opaque refresh token for userID
func (s *userService) issueRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	now := time.Now()
	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		ExpiresAt: now.Add(s.cfg.RefreshExpiry),
		CreatedAt: now,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", err
	}
	return token.Token, nil
}
