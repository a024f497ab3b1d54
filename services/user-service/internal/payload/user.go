package payload

import "github.com/SHAN0945/SafeTrail/services/user-service/internal/model"

type UpdateProfileRequest struct {
	Name      *string `json:"name"      validate:"omitempty,min=1,max=100"`
	FirstName *string `json:"firstName" validate:"omitempty,max=50"`
	LastName  *string `json:"lastName"  validate:"omitempty,max=50"`
	Phone     *string `json:"phone"     validate:"omitempty,e164"`
	Image     *string `json:"image"     validate:"omitempty,url"`
}

// ProfileResponse is the signed-in user's full profile.
type ProfileResponse struct {
	*model.SessionUser
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type UpdateProfileResponse struct {
	User ProfileResponse `json:"user"`
}

func NewProfileResponse(user *model.User) ProfileResponse {
	return ProfileResponse{
		SessionUser: user.ToSessionUser(),
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
	}
}

type UpdateSafetyStatusRequest struct {
	Status model.SafetyStatus `json:"status" validate:"required,oneof=safe warning danger"`
}

type UpdateSafetyStatusResponse struct {
	Message string             `json:"message"`
	Status  model.SafetyStatus `json:"status"`
}
