package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/config"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/model"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/repository"
	"github.com/SHAN0945/SafeTrail/shared/auth"
	"github.com/SHAN0945/SafeTrail/shared/mailer"
)

// PasswordResetUsecase defines the business logic for password reset token operations.
type PasswordResetUsecase interface {
	// RequestPasswordReset e-mails a reset link to a credentials account.
	// Unknown emails are accepted silently.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword sets a new password using a reset token issued by RequestPasswordReset.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// ValidatePasswordResetToken checks that token can still be used.
	ValidatePasswordResetToken(ctx context.Context, token string) error
}

var (
	ErrPasswordResetDisabled = errors.New("password reset is not configured")
	ErrTokenNotFound         = errors.New("password reset token not found")
	ErrTokenAlreadyUsed      = errors.New("password reset token has already been used")
	ErrTokenExpired          = errors.New("password reset token has expired")
	ErrInvalidToken          = errors.New("invalid password reset token")
)

// PasswordResetClaims are carried by a password reset token. The JWT ID names the stored token.
type PasswordResetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type passwordResetUsecase struct {
	userUsecase    UserUsecase
	tokenRepo      repository.PasswordResetTokenRepository
	jwtAuth        auth.JWTAuthenticator
	mailer         mailer.Sender
	userServiceCfg *config.UserServiceConfig
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
// A nil sender disables password reset.
func NewPasswordResetUsecase(
	userUsecase UserUsecase,
	tokenRepo repository.PasswordResetTokenRepository,
	jwtAuth auth.JWTAuthenticator,
	sender mailer.Sender,
	userServiceCfg *config.UserServiceConfig,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		userUsecase:    userUsecase,
		tokenRepo:      tokenRepo,
		jwtAuth:        jwtAuth,
		mailer:         sender,
		userServiceCfg: userServiceCfg,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	if u.mailer == nil {
		return ErrPasswordResetDisabled
	}

	user, err := u.userUsecase.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	// Do not reveal whether the email exists or signs in with Google.
	if user == nil || user.Provider != model.ProviderCredentials || !user.IsActive {
		return nil
	}

	if err := u.tokenRepo.InvalidateUserTokens(ctx, user.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	expiresIn := u.userServiceCfg.Token.PasswordResetTokenExpiresIn
	jti := uuid.NewString()
	claims := PasswordResetClaims{
		Email:            user.Email,
		RegisteredClaims: u.jwtAuth.RegisteredClaims(user.ID.Hex(), jti, expiresIn),
	}

	tokenStr, err := u.jwtAuth.GenerateToken(claims, u.userServiceCfg.Token.PasswordResetTokenSecret)
	if err != nil {
		return fmt.Errorf("failed to sign password reset token: %w", err)
	}

	if _, err := u.tokenRepo.CreateToken(ctx, &model.PasswordResetToken{
		JTI:       jti,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	resetLink := fmt.Sprintf("%s?token=%s", u.userServiceCfg.AppPasswordResetURL, url.QueryEscape(tokenStr))
	htmlBody := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>We received a request to reset the password for your SafeTrail account.</p>
		<p>If you made this request, please click the link below to create a new password:</p>

		<p><a href="%s">%s</a></p>

		<p>This link will expire in %s.</p>
		<p>If you did not request a password reset, you can safely ignore this email. Your account will remain secure.</p>

		<p>Stay safe,</p>
		<p>The SafeTrail Team</p>
	`, user.Name, resetLink, resetLink, expiresIn)

	if err := u.mailer.SendHTML([]string{user.Email}, "Reset your SafeTrail password", htmlBody); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	resetToken, err := u.loadToken(ctx, token)
	if err != nil {
		return err
	}

	// Claim the token first so two concurrent resets cannot both succeed.
	if err := u.tokenRepo.MarkTokenAsUsed(ctx, resetToken.JTI); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrTokenAlreadyUsed
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return u.userUsecase.SetPassword(ctx, resetToken.UserID.Hex(), newPassword)
}

func (u *passwordResetUsecase) ValidatePasswordResetToken(ctx context.Context, token string) error {
	_, err := u.loadToken(ctx, token)
	return err
}

func (u *passwordResetUsecase) loadToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	if u.mailer == nil {
		return nil, ErrPasswordResetDisabled
	}

	var claims PasswordResetClaims
	if err := u.jwtAuth.ValidateTokenWithClaims(
		token,
		u.userServiceCfg.Token.PasswordResetTokenSecret,
		&claims,
	); err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	resetToken, err := u.tokenRepo.GetTokenByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if resetToken.Used {
		return nil, ErrTokenAlreadyUsed
	}
	if time.Now().After(resetToken.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if resetToken.UserID == bson.NilObjectID {
		return nil, ErrInvalidToken
	}

	return resetToken, nil
}
