package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	internaljwt "sales-routing-backend/internal/jwt"
)

type TokenParser interface {
	ParseToken(tokenString string, role internaljwt.Role) (internaljwt.Operator, error)
}

type operatorKey struct{}

// OperatorFromContext returns the operator authenticated by ValidateJWT.
func OperatorFromContext(ctx context.Context) (internaljwt.Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(internaljwt.Operator)
	return op, ok
}

func WithOperator(ctx context.Context, op internaljwt.Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func ValidateJWTMiddleware(parser TokenParser, role internaljwt.Role) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)
			if tokenString == "" {
				unauthorized(w)
				return
			}

			op, err := parser.ParseToken(tokenString, role)
			if err != nil {
				unauthorized(w)
				return
			}

			next(w, r.WithContext(WithOperator(r.Context(), op)))
		}
	}
}

// unauthorized writes the same JSON error body the API uses for handler errors.
func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
}

func ValidateOperatorJWT(parser TokenParser) Middleware {
	return ValidateJWTMiddleware(parser, internaljwt.RoleOperator)
}
