package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/middleware"
	internaljwt "sales-routing-backend/internal/jwt"
)

type HTTPError = api.HTTPError

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method not allowed"),
	}
}

func decodeJSON(r *http.Request, v any, what string) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode %s request: %w", what, err),
		}
	}
	return nil
}

// splitPath returns the resource id and the optional action below prefix, so
// "/conversations/abc/replies" under "/conversations/" yields ("abc", "replies").
func splitPath(path, prefix string) (string, string, error) {
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("path mismatch: %s", path)}
	}
	id, action, _ := strings.Cut(strings.Trim(trimmed, "/"), "/")
	if id == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("missing id in %s", path)}
	}
	return id, action, nil
}

// requireOperator authenticates the request for handlers that mix public and
// operator-only actions under one route.
func requireOperator(r *http.Request, parser middleware.TokenParser) (internaljwt.Operator, error) {
	if op, ok := middleware.OperatorFromContext(r.Context()); ok {
		return op, nil
	}
	unauthorized := func(err error) error {
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: err}
	}
	if parser == nil {
		return internaljwt.Operator{}, unauthorized(fmt.Errorf("operator auth not configured"))
	}
	token := middleware.BearerToken(r)
	if token == "" {
		return internaljwt.Operator{}, unauthorized(fmt.Errorf("missing bearer token"))
	}
	op, err := parser.ParseToken(token, internaljwt.RoleOperator)
	if err != nil {
		return internaljwt.Operator{}, unauthorized(err)
	}
	return op, nil
}
