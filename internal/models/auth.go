package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TutorSubject is the subject claim of the single tutor account.
const TutorSubject = "tutor"

// LoginRequest holds the tutor's credentials.
type LoginRequest struct {
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	jwt.RegisteredClaims
}
