package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evalify/evalify-evaluator/internal/config"
	"github.com/evalify/evalify-evaluator/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid client id or secret")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const tokenLifetime = 12 * time.Hour

// AuthService authenticates calling services against a shared client
// credential and issues short-lived JWTs.
type AuthService struct {
	clientID     string
	clientSecret string
	jwtSecret    []byte
}

// NewAuthService creates a new auth service from config
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		jwtSecret:    []byte(cfg.JWTSecret),
	}
}

// IssueToken validates client credentials and returns a signed token
func (s *AuthService) IssueToken(clientID, clientSecret string) (*model.TokenResponse, error) {
	if clientID != s.clientID || clientSecret != s.clientSecret {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := &model.ServiceClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		Token:     tokenString,
		ExpiresIn: int64(tokenLifetime.Seconds()),
	}, nil
}

// ValidateToken validates a service JWT and returns its claims
func (s *AuthService) ValidateToken(tokenString string) (*model.ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.ServiceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
