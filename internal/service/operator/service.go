package operator

import (
	"context"
	"errors"
	"strings"
	"time"

	"sales-routing-backend/internal/database"
	internaljwt "sales-routing-backend/internal/jwt"
	"sales-routing-backend/internal/model"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

const minPasswordLength = 8

type TokenIssuer interface {
	CreateTokenWithRefresh(ctx context.Context, op internaljwt.Operator, role internaljwt.Role) (internaljwt.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string, role internaljwt.Role) (string, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type CreateParams struct {
	Email    string
	Name     string
	Password string
}

type LoginResult struct {
	Operator model.OperatorItem
	Tokens   internaljwt.TokenResponse
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	now    func() time.Time
}

func New(db *database.Database, tokens TokenIssuer) *Service {
	return &Service{
		repo:   NewDynamoRepository(db),
		tokens: tokens,
		now:    time.Now,
	}
}

func NewWithRepository(repo Repository, tokens TokenIssuer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		now:    now,
	}
}

func (s *Service) Create(ctx context.Context, params CreateParams) (model.OperatorItem, error) {
	email := normalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)
	if email == "" || !strings.Contains(email, "@") {
		return model.OperatorItem{}, newError(ErrorCodeValidation, "a valid email is required", nil)
	}
	if name == "" {
		name = email
	}
	if len(params.Password) < minPasswordLength {
		return model.OperatorItem{}, newError(ErrorCodeValidation, "password must have at least 8 characters", nil)
	}

	hash, err := internaljwt.HashPassword(params.Password)
	if err != nil {
		return model.OperatorItem{}, newError(ErrorCodeInternal, "failed to hash password", err)
	}

	op := model.OperatorItem{
		Email:        email,
		OperatorID:   uuid.NewString(),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.Create(ctx, op); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return model.OperatorItem{}, newError(ErrorCodeConflict, "operator already exists", err)
		}
		return model.OperatorItem{}, newError(ErrorCodeInternal, "failed to save operator", err)
	}
	return op, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	op, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
		}
		return LoginResult{}, newError(ErrorCodeInternal, "failed to load operator", err)
	}
	if !internaljwt.ValidatePassword(op.PasswordHash, password) {
		return LoginResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	tokens, err := s.tokens.CreateTokenWithRefresh(ctx, internaljwt.Operator{ID: op.OperatorID, Email: op.Email}, internaljwt.RoleOperator)
	if err != nil {
		return LoginResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}
	return LoginResult{Operator: op, Tokens: tokens}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (internaljwt.TokenResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return internaljwt.TokenResponse{}, newError(ErrorCodeValidation, "refresh token is required", nil)
	}
	access, err := s.tokens.RefreshToken(ctx, refreshToken, internaljwt.RoleOperator)
	if err != nil {
		return internaljwt.TokenResponse{}, newError(ErrorCodeUnauthorized, "invalid refresh token", err)
	}
	return internaljwt.TokenResponse{AccessToken: access}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, strings.TrimSpace(refreshToken)); err != nil {
		return newError(ErrorCodeInternal, "failed to revoke refresh token", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]model.OperatorItem, error) {
	ops, err := s.repo.List(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list operators", err)
	}
	return ops, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
