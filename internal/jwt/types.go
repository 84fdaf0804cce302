package jwt

import "time"

type Role int

const (
	RoleOperator Role = iota
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 24 * 30 * time.Hour
)

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Operator is the identity carried inside tokens.
type Operator struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
