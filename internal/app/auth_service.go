package app

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"spacebio-rag/internal/pkg/jwtutil"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	authSubject     = "authenticated_user"
	anonSubject     = "user"
	authDisabled    = "disabled"
	defaultTokenTTL = 24 * time.Hour
)

// AuthService guards the API with a single shared password. With no password
// configured every request is allowed and Login still issues tokens.
type AuthService struct {
	passwordHash  []byte
	jwtSecret     string
	jwtExpiration time.Duration
}

type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func NewAuthService(appPassword, jwtSecret string, jwtExpiration time.Duration) (*AuthService, error) {
	if jwtExpiration <= 0 {
		jwtExpiration = defaultTokenTTL
	}
	if jwtSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate jwt secret failed: %w", err)
		}
		jwtSecret = hex.EncodeToString(buf)
	}

	s := &AuthService{jwtSecret: jwtSecret, jwtExpiration: jwtExpiration}
	if appPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(appPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password failed: %w", err)
		}
		s.passwordHash = hash
	}
	return s, nil
}

func (s *AuthService) Enabled() bool {
	return len(s.passwordHash) > 0
}

func (s *AuthService) Login(password string) (*TokenResult, error) {
	subject, mode := authSubject, ""
	if !s.Enabled() {
		subject, mode = anonSubject, authDisabled
	} else {
		if password == "" {
			return nil, ErrInvalidInput
		}
		if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
			return nil, ErrUnauthorized
		}
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, subject, mode)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.jwtExpiration.Seconds()),
	}, nil
}

// Verify validates a bearer token. It always succeeds when auth is disabled.
func (s *AuthService) Verify(token string) (*jwtutil.Claims, error) {
	if !s.Enabled() {
		return &jwtutil.Claims{Auth: authDisabled}, nil
	}
	claims, err := jwtutil.ParseToken(s.jwtSecret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}
