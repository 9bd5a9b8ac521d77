// Package auth issues and validates the JWT credentials that gate every
// data route.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService defines authentication operations.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*Token, error)
	ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error)
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

// Token is the response of a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// User is a credential-store entry.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
}

// UserStore is the fixed in-memory credential set. It is built once at
// startup and read-only afterwards, so it needs no locking.
type UserStore struct {
	users map[string]User
}

// NewUserStore hashes the seed passwords and builds the store.
func NewUserStore(credentials map[string]string) (*UserStore, error) {
	users := make(map[string]User, len(credentials))
	for username, password := range credentials {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %q: %w", username, err)
		}
		users[username] = User{
			ID:           uuid.New(),
			Username:     username,
			PasswordHash: string(hash),
		}
	}
	return &UserStore{users: users}, nil
}

// Lookup returns the user for a username.
func (s *UserStore) Lookup(username string) (User, bool) {
	user, ok := s.users[username]
	return user, ok
}

// Service implements AuthService with HS256-signed tokens.
type Service struct {
	logger    *zap.Logger
	store     *UserStore
	jwtSecret []byte
	expiry    time.Duration
	issuer    string
}

// NewService creates a new authentication service
func NewService(logger *zap.Logger, store *UserStore, jwtSecret string, expiry time.Duration, issuer string) (*Service, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT secret cannot be empty")
	}
	return &Service{
		logger:    logger,
		store:     store,
		jwtSecret: []byte(jwtSecret),
		expiry:    expiry,
		issuer:    issuer,
	}, nil
}

// Authenticate verifies the credentials and returns a signed access token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Token, error) {
	user, ok := s.store.Lookup(username)
	if !ok {
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	expiresAt := now.Add(s.expiry)
	claims := &TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	s.logger.Info("user authenticated", zap.String("username", user.Username))

	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken validates a JWT token and returns claims
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
