package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/config"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/model"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/repository"
	"github.com/SHAN0945/SafeTrail/shared/provider"
)

// fakeUserRepo is an in-memory UserRepository. Its clock advances by one
// millisecond per write unless frozen; updates keep updated_at strictly
// increasing either way, as the Mongo repository does.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	clock  time.Time
	frozen bool
	writes int
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: make(map[string]*model.User),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeUserRepo) tick() time.Time {
	if !r.frozen {
		r.clock = r.clock.Add(time.Millisecond)
	}
	return r.clock
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	if _, ok := r.users[user.Email]; ok {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key"}}}
	}

	now := r.tick()
	stored := *user
	stored.ID = bson.NewObjectID()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.users[stored.Email] = &stored
	r.writes++

	out := stored
	return &out, nil
}

func (r *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.ID.Hex() == id {
			out := *u
			return &out, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[email]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) GetUserByProviderID(_ context.Context, providerID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.ProviderID == providerID {
			out := *u
			return &out, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) UpdateUserByEmail(
	_ context.Context,
	email string,
	params repository.UpdateUserParams,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[email]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if params.Name != nil {
		u.Name = *params.Name
	}
	if params.FirstName != nil {
		u.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		u.LastName = *params.LastName
	}
	if params.Phone != nil {
		u.Phone = *params.Phone
	}
	if params.Image != nil {
		u.Image = *params.Image
	}
	if params.SafetyStatus != nil {
		u.SafetyStatus = *params.SafetyStatus
	}
	if params.PasswordHash != nil {
		u.PasswordHash = *params.PasswordHash
	}
	now := r.tick()
	if next := u.UpdatedAt.Add(time.Millisecond); now.Before(next) {
		now = next
	}
	u.UpdatedAt = now
	r.writes++

	out := *u
	return &out, nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	err      error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *fakeSessionRepo) CreateSession(_ context.Context, session *model.Session) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	session.ID = bson.NewObjectID()
	stored := *session
	r.sessions[session.JTI] = &stored
	return session, nil
}

func (r *fakeSessionRepo) GetSessionByJTI(_ context.Context, jti string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.sessions[jti]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := *s
	return &out, nil
}

func (r *fakeSessionRepo) RevokeSession(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	if s, ok := r.sessions[jti]; ok && s.RevokedAt == nil {
		now := time.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (r *fakeSessionRepo) only() *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		return s
	}
	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.PasswordResetToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.PasswordResetToken)}
}

func (r *fakeTokenRepo) CreateToken(_ context.Context, token *model.PasswordResetToken) (*model.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token.ID = bson.NewObjectID()
	token.Used = false
	stored := *token
	r.tokens[token.JTI] = &stored
	return token, nil
}

func (r *fakeTokenRepo) GetTokenByJTI(_ context.Context, jti string) (*model.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[jti]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	out := *t
	return &out, nil
}

func (r *fakeTokenRepo) MarkTokenAsUsed(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[jti]
	if !ok || t.Used {
		return mongo.ErrNoDocuments
	}
	t.Used = true
	return nil
}

func (r *fakeTokenRepo) InvalidateUserTokens(_ context.Context, userID bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.UserID == userID {
			t.Used = true
		}
	}
	return nil
}

type fakeGoogle struct {
	profiles map[string]*provider.GoogleProfile
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (g *fakeGoogle) Exchange(_ context.Context, code string) (*provider.GoogleProfile, error) {
	if p, ok := g.profiles[code]; ok {
		return p, nil
	}
	return nil, errors.New("oauth2: invalid_grant")
}

func (g *fakeGoogle) ValidateIDToken(_ context.Context, idToken string) (*provider.GoogleProfile, error) {
	if p, ok := g.profiles[idToken]; ok {
		return p, nil
	}
	return nil, provider.ErrInvalidGoogleAudience
}

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendHTML(to []string, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

func testConfig() *config.UserServiceConfig {
	return &config.UserServiceConfig{
		Server: config.ServerConfig{
			AppBaseURL:          "https://safetrail.app",
			DefaultRedirectPath: "/dashboard",
		},
		Token: config.TokenConfig{
			Issuer:                      "safetrail",
			SessionTokenSecret:          "session-secret",
			SessionTokenExpiresIn:       time.Hour,
			PasswordResetTokenSecret:    "reset-secret",
			PasswordResetTokenExpiresIn: 15 * time.Minute,
		},
		AppPasswordResetURL: "https://safetrail.app/reset-password",
	}
}
