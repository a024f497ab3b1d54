package payload

import "github.com/SHAN0945/SafeTrail/services/user-service/internal/model"

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Name      string `json:"name"      validate:"required,max=100"`
	FirstName string `json:"firstName" validate:"omitempty,max=50"`
	LastName  string `json:"lastName"  validate:"omitempty,max=50"`
	Phone     string `json:"phone"     validate:"omitempty,e164"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=8,max=128"`
}

type GoogleTokenRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

// SessionResponse is returned by every endpoint that issues or reads a session.
type SessionResponse struct {
	User      *model.SessionUser `json:"user"`
	ExpiresAt string             `json:"expires,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
