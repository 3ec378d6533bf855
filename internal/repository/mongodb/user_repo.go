package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.coll.Indexes().CreateOne(ctx, uniqueIndex("username")); err != nil {
		return fmt.Errorf("UserRepository.EnsureIndexes: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	doc := bson.D{
		{Key: "username", Value: user.Username},
		{Key: "password_hash", Value: user.Password},
		{Key: "role", Value: user.Role},
		{Key: "created_at", Value: now},
		{Key: "updated_at", Value: now},
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: username '%s'", repository.ErrDuplicateEntry, user.Username)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "FindByUsername", bson.D{{Key: "username", Value: username}})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, "FindByID", bson.D{{Key: "_id", Value: oid}})
}

func (r *UserRepository) findOne(ctx context.Context, op string, filter bson.D) (*domain.User, error) {
	var user domain.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.%s: %w", op, err)
	}
	return &user, nil
}
