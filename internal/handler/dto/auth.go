package dto

import (
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/service"
)

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`

	Name      string            `json:"nome"`
	Kind      model.ProfileKind `json:"tipo"`
	TaxID     string            `json:"cpf_cnpj"`
	OABNumber string            `json:"oab_numero"`
	OABState  string            `json:"oab_estado"`
	CNPJ      string            `json:"cnpj,omitempty"`
	Phone     string            `json:"telefone,omitempty"`
	Areas     []string          `json:"areas,omitempty"`
	Cities    []string          `json:"cidades,omitempty"`
	States    []string          `json:"estados,omitempty"`
	Schedule  model.Schedule    `json:"horario_atendimento,omitempty"`
}

// ToInput converts the request into service input.
func (r RegisterRequest) ToInput() service.RegisterInput {
	return service.RegisterInput{
		Email:     r.Email,
		Password:  r.Password,
		FullName:  r.FullName,
		Name:      r.Name,
		Kind:      r.Kind,
		TaxID:     r.TaxID,
		OABNumber: r.OABNumber,
		OABState:  r.OABState,
		CNPJ:      r.CNPJ,
		Phone:     r.Phone,
		Areas:     r.Areas,
		Cities:    r.Cities,
		States:    r.States,
		Schedule:  r.Schedule,
	}
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordResetRequest is the body of POST /api/v1/auth/password-reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest is the body of POST /api/v1/auth/password-reset/confirm.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// TokenRequest carries a single emailed token.
type TokenRequest struct {
	Token string `json:"token"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

// ToAuthResponse converts a service result.
func ToAuthResponse(r *service.AuthResult) *AuthResponse {
	return &AuthResponse{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		ExpiresIn:   int64(r.ExpiresIn.Seconds()),
		UserID:      r.UserID,
		Email:       r.Email,
	}
}
