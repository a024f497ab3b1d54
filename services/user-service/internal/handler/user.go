package handler

import (
	"net/http"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/payload"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/usecase"
	"github.com/SHAN0945/SafeTrail/shared/response"
)

// UpdateProfile changes the signed-in user's name, contact details or avatar.
func (h *userHTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current, _ := sessionUserFromContext(r.Context())

	var req payload.UpdateProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userUsecase.UpdateUser(r.Context(), current.Email, usecase.UpdateUserParams{
		Name:      req.Name,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Image:     req.Image,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, payload.UpdateProfileResponse{User: payload.NewProfileResponse(user)})
}

// UpdateSafetyStatus records the signed-in tourist's safety status.
func (h *userHTTPHandler) UpdateSafetyStatus(w http.ResponseWriter, r *http.Request) {
	current, _ := sessionUserFromContext(r.Context())

	var req payload.UpdateSafetyStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userUsecase.UpdateUser(r.Context(), current.Email, usecase.UpdateUserParams{
		SafetyStatus: &req.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	safetyStatusUpdatesTotal.WithLabelValues(string(user.SafetyStatus)).Inc()
	response.OK(w, payload.UpdateSafetyStatusResponse{
		Message: "Status updated",
		Status:  user.SafetyStatus,
	})
}
