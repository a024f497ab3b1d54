package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/model"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/repository"
	"github.com/SHAN0945/SafeTrail/shared/provider"
	"github.com/SHAN0945/SafeTrail/shared/security"
	"github.com/SHAN0945/SafeTrail/shared/validator"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrPersistence       = errors.New("persistence failure")
)

// UserUsecase is the user record service. Lookups return (nil, nil) when
// nothing matches; only UpdateUser reports ErrUserNotFound.
type UserUsecase interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByProviderID(ctx context.Context, providerID string) (*model.User, error)
	UpdateUser(ctx context.Context, email string, params UpdateUserParams) (*model.User, error)
	VerifyPassword(plaintext, hash string) bool
	FindOrCreateGoogleUser(ctx context.Context, profile *provider.GoogleProfile) (*model.User, error)
	SetPassword(ctx context.Context, userID, plaintext string) error
}

// CreateUserParams defines the parameters for creating a user.
// Password is only used for credentials accounts, ProviderID only for google accounts.
type CreateUserParams struct {
	Name       string
	FirstName  string
	LastName   string
	Phone      string
	Email      string
	Image      string
	Provider   model.Provider
	ProviderID string
	Password   string
}

// UpdateUserParams defines the fields a user may change on their own record.
// Only the fields that are not nil will be updated.
type UpdateUserParams struct {
	Name         *string
	FirstName    *string
	LastName     *string
	Phone        *string
	Image        *string
	SafetyStatus *model.SafetyStatus
}

type userUsecase struct {
	userRepo  repository.UserRepository
	validator *validator.Validator
}

func NewUserUsecase(userRepo repository.UserRepository, validator *validator.Validator) UserUsecase {
	return &userUsecase{
		userRepo:  userRepo,
		validator: validator,
	}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *userUsecase) CreateUser(ctx context.Context, params CreateUserParams) (*model.User, error) {
	email := NormalizeEmail(params.Email)
	if err := u.validateEmail(email); err != nil {
		return nil, err
	}
	if !params.Provider.Valid() {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrValidation, params.Provider)
	}
	if params.Provider == model.ProviderCredentials && params.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	phone := strings.TrimSpace(params.Phone)
	if err := u.validatePhone(phone); err != nil {
		return nil, err
	}

	existing, err := u.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	user := &model.User{
		Name:         strings.TrimSpace(params.Name),
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Phone:        phone,
		Email:        email,
		Image:        params.Image,
		Provider:     params.Provider,
		SafetyStatus: model.SafetyStatusSafe,
		IsActive:     true,
	}

	switch params.Provider {
	case model.ProviderCredentials:
		passwordHash, err := security.HashPassword(params.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = passwordHash
	case model.ProviderGoogle:
		user.ProviderID = params.ProviderID
	}

	created, err := u.userRepo.CreateUser(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return created, nil
}

func (u *userUsecase) GetUser(ctx context.Context, id string) (*model.User, error) {
	return u.lookup(u.userRepo.GetUser(ctx, id))
}

func (u *userUsecase) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	return u.lookup(u.userRepo.GetUserByEmail(ctx, email))
}

func (u *userUsecase) FindUserByProviderID(ctx context.Context, providerID string) (*model.User, error) {
	if providerID == "" {
		return nil, nil
	}

	return u.lookup(u.userRepo.GetUserByProviderID(ctx, providerID))
}

func (u *userUsecase) UpdateUser(ctx context.Context, email string, params UpdateUserParams) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if params.SafetyStatus != nil && !params.SafetyStatus.Valid() {
		return nil, fmt.Errorf("%w: invalid safety status %q", ErrValidation, *params.SafetyStatus)
	}

	if params.Phone != nil {
		phone := strings.TrimSpace(*params.Phone)
		if err := u.validatePhone(phone); err != nil {
			return nil, err
		}
		params.Phone = &phone
	}

	// An empty update still advances updated_at and touches no other field.
	user, err := u.userRepo.UpdateUserByEmail(ctx, email, repository.UpdateUserParams{
		Name:         params.Name,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Phone:        params.Phone,
		Image:        params.Image,
		SafetyStatus: params.SafetyStatus,
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return user, nil
}

func (u *userUsecase) VerifyPassword(plaintext, hash string) bool {
	ok, err := security.VerifyPassword(plaintext, hash)
	return err == nil && ok
}

// FindOrCreateGoogleUser resolves a Google identity by subject, then by email,
// and creates a google account only when neither matches. An existing
// credentials account with the same email is returned unchanged.
func (u *userUsecase) FindOrCreateGoogleUser(ctx context.Context, profile *provider.GoogleProfile) (*model.User, error) {
	if profile == nil || profile.Subject == "" {
		return nil, fmt.Errorf("%w: google subject is required", ErrValidation)
	}

	user, err := u.FindUserByProviderID(ctx, profile.Subject)
	if err != nil || user != nil {
		return user, err
	}

	user, err = u.FindUserByEmail(ctx, profile.Email)
	if err != nil || user != nil {
		return user, err
	}

	user, err = u.CreateUser(ctx, CreateUserParams{
		Name:       profile.Name,
		Email:      profile.Email,
		Image:      profile.Picture,
		Provider:   model.ProviderGoogle,
		ProviderID: profile.Subject,
	})
	if errors.Is(err, ErrUserAlreadyExists) {
		// Lost a race with a concurrent first sign-in for the same email.
		return u.FindUserByEmail(ctx, profile.Email)
	}

	return user, err
}

func (u *userUsecase) SetPassword(ctx context.Context, userID, plaintext string) error {
	user, err := u.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.Provider != model.ProviderCredentials {
		return fmt.Errorf("%w: account does not use a password", ErrValidation)
	}

	passwordHash, err := security.HashPassword(plaintext)
	if err != nil {
		if errors.Is(err, security.ErrEmptyPassword) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := u.userRepo.UpdateUserByEmail(ctx, user.Email, repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return nil
}

func (u *userUsecase) validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := u.validator.Var(email, "email"); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

// validatePhone accepts an empty value or an E.164 number.
func (u *userUsecase) validatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if err := u.validator.Var(phone, "e164"); err != nil {
		return fmt.Errorf("%w: invalid phone number", ErrValidation)
	}
	return nil
}

func (u *userUsecase) lookup(user *model.User, err error) (*model.User, error) {
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return user, nil
}
