package model

import "github.com/golang-jwt/jwt/v5"

// ServiceClaims are JWT claims for service-to-service authentication
type ServiceClaims struct {
	ClientID string `json:"clientId"`
	jwt.RegisteredClaims
}

// TokenRequest is the request body for the token endpoint
type TokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// TokenResponse is returned after successful authentication
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}
