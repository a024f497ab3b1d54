package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/payload"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/usecase"
	"github.com/SHAN0945/SafeTrail/shared/response"
)

// ForgotPassword always answers 202 so callers cannot probe which emails exist.
func (h *userHTTPHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, usecase.ErrPasswordResetDisabled) {
			h.writeError(w, r, err)
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("failed to request password reset")
	}

	response.JSON(w, http.StatusAccepted, payload.MessageResponse{
		Message: "If an account exists for this email, a reset link has been sent",
	})
}

// CheckResetToken lets the reset page reject a stale link before asking for a new password.
func (h *userHTTPHandler) CheckResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.Error(w, response.ErrBadRequest.WithMessage("token is required"))
		return
	}

	if err := h.passwordResetUsecase.ValidatePasswordResetToken(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, payload.MessageResponse{Message: "Password reset token is valid"})
}

func (h *userHTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, payload.MessageResponse{Message: "Password updated"})
}
