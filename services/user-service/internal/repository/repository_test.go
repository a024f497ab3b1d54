package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/model"
	"github.com/SHAN0945/SafeTrail/shared/database"
)

// newTestDatabase connects to MONGO_TEST_URI and returns a throwaway database.
func newTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	logger := zerolog.Nop()
	ctx := context.Background()

	m, err := database.NewMongo(ctx, &logger, database.MongoConfig{
		URI:            uri,
		Database:       "safetrail_test_" + uuid.NewString()[:8],
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = m.Database().Drop(context.Background())
		_ = m.Close(context.Background())
	})

	return m.Database()
}

func TestUserMongoRepository(t *testing.T) {
	db := newTestDatabase(t)
	logger := zerolog.Nop()
	ctx := context.Background()
	repo := NewUserMongoRepository(ctx, &logger, db)

	created, err := repo.CreateUser(ctx, &model.User{
		Name:         "Ana",
		Email:        "ana@example.com",
		Provider:     model.ProviderCredentials,
		PasswordHash: "$argon2id$v=19$hash",
		SafetyStatus: model.SafetyStatusSafe,
		IsActive:     true,
	})
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	_, err = repo.CreateUser(ctx, &model.User{Name: "Dup", Email: "ana@example.com", Provider: model.ProviderGoogle})
	assert.True(t, mongo.IsDuplicateKeyError(err))

	// Records without provider_id stay outside the partial unique index.
	_, err = repo.CreateUser(ctx, &model.User{Name: "Bo", Email: "bo@example.com", Provider: model.ProviderCredentials})
	require.NoError(t, err)

	byEmail, err := repo.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.GetUser(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Ana", byID.Name)

	_, err = repo.GetUserByProviderID(ctx, "missing")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	danger := model.SafetyStatusDanger
	time.Sleep(2 * time.Millisecond)
	updated, err := repo.UpdateUserByEmail(ctx, "ana@example.com", UpdateUserParams{SafetyStatus: &danger})
	require.NoError(t, err)
	assert.Equal(t, model.SafetyStatusDanger, updated.SafetyStatus)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, "$argon2id$v=19$hash", updated.PasswordHash)

	_, err = repo.UpdateUserByEmail(ctx, "ghost@example.com", UpdateUserParams{SafetyStatus: &danger})
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	touched, err := repo.UpdateUserByEmail(ctx, "ana@example.com", UpdateUserParams{})
	require.NoError(t, err)
	assert.True(t, touched.UpdatedAt.After(updated.UpdatedAt))
	assert.Equal(t, model.SafetyStatusDanger, touched.SafetyStatus)

	literal := "$name"
	renamed, err := repo.UpdateUserByEmail(ctx, "ana@example.com", UpdateUserParams{Name: &literal})
	require.NoError(t, err)
	assert.Equal(t, "$name", renamed.Name)
}

func TestUserMongoRepository_UpdatedAtAdvancesWithinSameMillisecond(t *testing.T) {
	db := newTestDatabase(t)
	logger := zerolog.Nop()
	ctx := context.Background()
	NewUserMongoRepository(ctx, &logger, db)

	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &userMongoRepository{db: db, now: func() time.Time { return frozen }}

	created, err := repo.CreateUser(ctx, &model.User{
		Name:     "Cy",
		Email:    "cy@example.com",
		Provider: model.ProviderGoogle,
	})
	require.NoError(t, err)

	phone := "+6281234567890"
	first, err := repo.UpdateUserByEmail(ctx, "cy@example.com", UpdateUserParams{Phone: &phone})
	require.NoError(t, err)
	assert.True(t, first.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, phone, first.Phone)

	second, err := repo.UpdateUserByEmail(ctx, "cy@example.com", UpdateUserParams{})
	require.NoError(t, err)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, created.CreatedAt, second.CreatedAt)
}

func TestSessionMongoRepository(t *testing.T) {
	db := newTestDatabase(t)
	logger := zerolog.Nop()
	ctx := context.Background()
	repo := NewSessionMongoRepository(ctx, &logger, db)

	session, err := repo.CreateSession(ctx, &model.Session{
		UserID:    bson.NewObjectID().Hex(),
		Email:     "ana@example.com",
		JTI:       "jti-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, session.ID.IsZero())

	found, err := repo.GetSessionByJTI(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, found.Active(time.Now()))

	require.NoError(t, repo.RevokeSession(ctx, "jti-1"))
	require.NoError(t, repo.RevokeSession(ctx, "jti-1"))

	found, err = repo.GetSessionByJTI(ctx, "jti-1")
	require.NoError(t, err)
	assert.NotNil(t, found.RevokedAt)
	assert.False(t, found.Active(time.Now()))
}

func TestPasswordResetTokenMongoRepository(t *testing.T) {
	db := newTestDatabase(t)
	logger := zerolog.Nop()
	ctx := context.Background()
	repo := NewPasswordResetTokenMongoRepository(ctx, &logger, db)

	userID := bson.NewObjectID()
	for _, jti := range []string{"a", "b"} {
		_, err := repo.CreateToken(ctx, &model.PasswordResetToken{
			UserID:    userID,
			JTI:       jti,
			Email:     "ana@example.com",
			ExpiresAt: time.Now().Add(15 * time.Minute),
		})
		require.NoError(t, err)
	}

	require.NoError(t, repo.MarkTokenAsUsed(ctx, "a"))
	assert.ErrorIs(t, repo.MarkTokenAsUsed(ctx, "a"), mongo.ErrNoDocuments)

	require.NoError(t, repo.InvalidateUserTokens(ctx, userID))
	token, err := repo.GetTokenByJTI(ctx, "b")
	require.NoError(t, err)
	assert.True(t, token.Used)
}
