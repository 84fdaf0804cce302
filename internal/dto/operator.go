package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type OperatorResponse struct {
	OperatorID string `json:"operatorId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	CreatedAt  string `json:"createdAt"`
}

type AuthResponse struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken,omitempty"`
	Operator     *OperatorResponse `json:"operator,omitempty"`
}
