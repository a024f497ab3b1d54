package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Provider identifies how a user signs in.
type Provider string

const (
	ProviderGoogle      Provider = "google"
	ProviderCredentials Provider = "credentials"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderCredentials:
		return true
	}
	return false
}

// SafetyStatus is the tourist's self-reported safety state.
type SafetyStatus string

const (
	SafetyStatusSafe    SafetyStatus = "safe"
	SafetyStatusWarning SafetyStatus = "warning"
	SafetyStatusDanger  SafetyStatus = "danger"
)

func (s SafetyStatus) Valid() bool {
	switch s {
	case SafetyStatusSafe, SafetyStatusWarning, SafetyStatusDanger:
		return true
	}
	return false
}

// User represents a tourist account.
// PasswordHash is only set for credentials accounts and ProviderID only for google accounts.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty"           json:"id"`
	Name         string        `bson:"name"                    json:"name"`
	FirstName    string        `bson:"first_name,omitempty"    json:"firstName,omitempty"`
	LastName     string        `bson:"last_name,omitempty"     json:"lastName,omitempty"`
	Phone        string        `bson:"phone,omitempty"         json:"phone,omitempty"`
	Email        string        `bson:"email"                   json:"email"`
	Image        string        `bson:"image,omitempty"         json:"image,omitempty"`
	Provider     Provider      `bson:"provider"                json:"provider"`
	ProviderID   string        `bson:"provider_id,omitempty"   json:"-"`
	PasswordHash string        `bson:"password_hash,omitempty" json:"-"`
	SafetyStatus SafetyStatus  `bson:"safety_status"           json:"safetyStatus"`
	IsActive     bool          `bson:"is_active"               json:"isActive"`
	CreatedAt    time.Time     `bson:"created_at"              json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updated_at"              json:"updatedAt"`
}

// SessionUser is the public projection of a user attached to an authenticated session.
type SessionUser struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Image        string       `json:"image,omitempty"`
	SafetyStatus SafetyStatus `json:"safetyStatus,omitempty"`
}

// ToSessionUser projects u onto the session shape.
func (u *User) ToSessionUser() *SessionUser {
	return &SessionUser{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		Name:         u.Name,
		Image:        u.Image,
		SafetyStatus: u.SafetyStatus,
	}
}
