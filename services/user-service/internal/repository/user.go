package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/model"
)

// UserRepository defines the interface for user-related database operations.
// Lookups return mongo.ErrNoDocuments when nothing matches.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByProviderID(ctx context.Context, providerID string) (*model.User, error)
	UpdateUserByEmail(ctx context.Context, email string, params UpdateUserParams) (*model.User, error)
}

// UpdateUserParams defines the optional parameters for updating a user.
// Only the fields that are not nil will be updated. An empty value only
// advances updated_at.
type UpdateUserParams struct {
	Name         *string
	FirstName    *string
	LastName     *string
	Phone        *string
	Image        *string
	SafetyStatus *model.SafetyStatus
	PasswordHash *string
}

const userCollection = "users"

type userMongoRepository struct {
	db  *mongo.Database
	now func() time.Time
}

// mongoNow matches the millisecond precision BSON dates are stored with.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "provider_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"provider_id": bson.M{"$exists": true}}),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db, now: mongoNow}
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}

	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	// Read back so the caller gets exactly what was stored.
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) GetUserByProviderID(ctx context.Context, providerID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"provider_id": providerID})
}

func (r *userMongoRepository) UpdateUserByEmail(
	ctx context.Context,
	email string,
	params UpdateUserParams,
) (*model.User, error) {
	set := bson.D{}
	setField := func(key string, value any) {
		// $literal keeps values such as "$name" from being read as field paths.
		set = append(set, bson.E{Key: key, Value: bson.D{{Key: "$literal", Value: value}}})
	}
	if params.Name != nil {
		setField("name", *params.Name)
	}
	if params.FirstName != nil {
		setField("first_name", *params.FirstName)
	}
	if params.LastName != nil {
		setField("last_name", *params.LastName)
	}
	if params.Phone != nil {
		setField("phone", *params.Phone)
	}
	if params.Image != nil {
		setField("image", *params.Image)
	}
	if params.SafetyStatus != nil {
		setField("safety_status", string(*params.SafetyStatus))
	}
	if params.PasswordHash != nil {
		setField("password_hash", *params.PasswordHash)
	}

	// updated_at moves forward by at least one millisecond on every write.
	set = append(set, bson.E{Key: "updated_at", Value: bson.D{{Key: "$max", Value: bson.A{
		r.now(),
		bson.D{{Key: "$add", Value: bson.A{"$updated_at", 1}}},
	}}}})

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"email": email},
		mongo.Pipeline{{{Key: "$set", Value: set}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, filter)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
