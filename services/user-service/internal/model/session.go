package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Session represents a signed-in browser session. The session token refers to it by JTI.
type Session struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    string        `bson:"user_id"`
	Email     string        `bson:"email"`
	JTI       string        `bson:"jti"`
	IPAddress *string       `bson:"ip_address,omitempty"`
	UserAgent *string       `bson:"user_agent,omitempty"`
	ExpiresAt time.Time     `bson:"expires_at"`
	RevokedAt *time.Time    `bson:"revoked_at,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// Active reports whether the session can still authenticate requests at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
