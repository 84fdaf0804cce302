package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-routing-backend/utils"

	"github.com/golang-jwt/jwt"
)

var ErrNotConfigured = errors.New("token issuer not configured")

func appendRoleChar(token string, role Role) string {
	switch role {
	case RoleOperator:
		return token + "o"
	}
	return token
}

func expectedRoleChar(role Role) string {
	switch role {
	case RoleOperator:
		return "o"
	}
	return ""
}

// Issuer signs access tokens and tracks refresh tokens for one secret per role.
type Issuer struct {
	secrets map[Role]string
	refresh RefreshStore
	now     func() time.Time
}

func NewIssuer(operatorSecret string, refresh RefreshStore, now func() time.Time) (*Issuer, error) {
	if operatorSecret == "" {
		return nil, fmt.Errorf("%w: operator secret is empty", ErrNotConfigured)
	}
	if now == nil {
		now = time.Now
	}
	if refresh == nil {
		refresh = NewMemoryRefreshStore(now)
	}
	return &Issuer{
		secrets: map[Role]string{RoleOperator: operatorSecret},
		refresh: refresh,
		now:     now,
	}, nil
}

func (i *Issuer) CreateToken(op Operator, role Role, validUntil int64) (string, error) {
	secret, ok := i.secrets[role]
	if !ok {
		return "", fmt.Errorf("invalid role specified")
	}

	if validUntil == 0 {
		validUntil = i.now().Add(AccessTokenTTL).Unix()
	}

	claims := jwt.MapClaims{
		"id":    op.ID,
		"email": op.Email,
		"exp":   validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return appendRoleChar(tokenString, role), nil
}

func (i *Issuer) CreateTokenWithRefresh(ctx context.Context, op Operator, role Role) (TokenResponse, error) {
	accessToken, err := i.CreateToken(op, role, 0)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshTokenRaw := utils.CreateToken()
	if err := i.refresh.Save(ctx, refreshTokenRaw, op, RefreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: appendRoleChar(refreshTokenRaw, role),
	}, nil
}

// ParseToken validates an access token and returns the operator it was issued to.
func (i *Issuer) ParseToken(tokenString string, role Role) (Operator, error) {
	if len(tokenString) == 0 {
		return Operator{}, fmt.Errorf("token string is empty")
	}

	if tokenString[len(tokenString)-1:] != expectedRoleChar(role) {
		return Operator{}, fmt.Errorf("invalid role character in token")
	}
	tokenString = tokenString[:len(tokenString)-1]

	secret, ok := i.secrets[role]
	if !ok {
		return Operator{}, fmt.Errorf("invalid role specified")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Operator{}, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return Operator{}, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Operator{}, fmt.Errorf("claims of unauthorized type")
	}
	if exp, ok := claims["exp"].(float64); ok && i.now().Unix() > int64(exp) {
		return Operator{}, fmt.Errorf("unauthorized: token is expired")
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	if id == "" {
		return Operator{}, fmt.Errorf("token has no subject")
	}
	return Operator{ID: id, Email: email}, nil
}

// RefreshToken issues a new access token and extends the refresh token's lifetime.
func (i *Issuer) RefreshToken(ctx context.Context, refreshToken string, role Role) (string, error) {
	if len(refreshToken) == 0 {
		return "", fmt.Errorf("refresh token is empty")
	}
	if refreshToken[len(refreshToken)-1:] != expectedRoleChar(role) {
		return "", fmt.Errorf("invalid role character in refresh token")
	}
	refreshTokenRaw := refreshToken[:len(refreshToken)-1]

	op, err := i.refresh.Lookup(ctx, refreshTokenRaw)
	if err != nil {
		return "", err
	}

	if err := i.refresh.Touch(ctx, refreshTokenRaw, RefreshTokenTTL); err != nil {
		return "", fmt.Errorf("failed to update refresh token expiration: %v", err)
	}

	return i.CreateToken(op, role, 0)
}

func (i *Issuer) Revoke(ctx context.Context, refreshToken string) error {
	if len(refreshToken) == 0 {
		return nil
	}
	return i.refresh.Delete(ctx, refreshToken[:len(refreshToken)-1])
}
