package endpoints

import (
	"context"
	"net/http"

	"sales-routing-backend/internal/dto"
	internaljwt "sales-routing-backend/internal/jwt"
	"sales-routing-backend/internal/service/operator"
)

type OperatorService interface {
	Login(ctx context.Context, email, password string) (operator.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (internaljwt.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
}

type OperatorEndpoints interface {
	Login(http.ResponseWriter, *http.Request) error
	Refresh(http.ResponseWriter, *http.Request) error
	Logout(http.ResponseWriter, *http.Request) error
}

type operatorEndpoints struct {
	service OperatorService
}

func NewOperatorEndpoints(service OperatorService) OperatorEndpoints {
	return &operatorEndpoints{service: service}
}

func (h *operatorEndpoints) Login(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogin,
	})
}

func (h *operatorEndpoints) Refresh(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefresh,
	})
}

func (h *operatorEndpoints) Logout(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogout,
	})
}

func (h *operatorEndpoints) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req, "login"); err != nil {
		return err
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	op := toOperatorResponse(result.Operator)
	return WriteJSON(w, http.StatusOK, dto.AuthResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		Operator:     &op,
	})
}

func (h *operatorEndpoints) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req, "refresh"); err != nil {
		return err
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

func (h *operatorEndpoints) handleLogout(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req, "logout"); err != nil {
		return err
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		return serviceError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
