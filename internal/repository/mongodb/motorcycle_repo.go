package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

type MotorcycleRepository struct {
	coll *mongo.Collection
}

func NewMotorcycleRepository(coll *mongo.Collection) *MotorcycleRepository {
	return &MotorcycleRepository{coll: coll}
}

var _ repository.MotorcycleRepository = (*MotorcycleRepository)(nil)

// EnsureIndexes creates the unique index on plate_number. Creating an existing index is a no-op.
func (r *MotorcycleRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, uniqueIndex("plate_number"))
	if err != nil {
		return fmt.Errorf("MotorcycleRepository.EnsureIndexes: %w", err)
	}
	return nil
}

func (r *MotorcycleRepository) Create(ctx context.Context, m *domain.Motorcycle) (*domain.Motorcycle, error) {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: plate '%s'", repository.ErrDuplicateEntry, m.PlateNumber)
		}
		return nil, fmt.Errorf("MotorcycleRepository.Create: %w", err)
	}
	return m, nil
}

func (r *MotorcycleRepository) FindByPlate(ctx context.Context, plate string) (*domain.Motorcycle, error) {
	var m domain.Motorcycle
	err := r.coll.FindOne(ctx, bson.D{{Key: "plate_number", Value: plate}}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("MotorcycleRepository.FindByPlate: %w", err)
	}
	return &m, nil
}

func (r *MotorcycleRepository) List(ctx context.Context, filter domain.MotorcycleFilterDTO) ([]domain.Motorcycle, error) {
	query := bson.D{}
	if filter.Blacklisted != nil {
		query = append(query, bson.E{Key: "blacklisted", Value: *filter.Blacklisted})
	}
	if filter.Expired != nil {
		query = append(query, bson.E{Key: "expired", Value: *filter.Expired})
	}
	if filter.Violations != nil {
		query = append(query, bson.E{Key: "violations", Value: *filter.Violations})
	}
	if filter.Region != "" {
		query = append(query, bson.E{Key: "region", Value: filter.Region})
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "plate_number", Value: 1}}).
		SetLimit(int64(repository.ListLimit(filter.Limit)))
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("MotorcycleRepository.List: %w", err)
	}
	motorcycles := []domain.Motorcycle{}
	if err := cur.All(ctx, &motorcycles); err != nil {
		return nil, fmt.Errorf("MotorcycleRepository.List (decoding): %w", err)
	}
	return motorcycles, nil
}

func (r *MotorcycleRepository) SetFlag(ctx context.Context, plate string, flag domain.StatusFlag, value bool) error {
	if !flag.Valid() {
		return fmt.Errorf("MotorcycleRepository.SetFlag: unknown status flag '%s'", flag)
	}
	return r.updateOne(ctx, "SetFlag", plate, bson.D{{Key: string(flag), Value: value}})
}

func (r *MotorcycleRepository) ClearStatuses(ctx context.Context, plate string) error {
	return r.updateOne(ctx, "ClearStatuses", plate, bson.D{
		{Key: string(domain.FlagBlacklisted), Value: false},
		{Key: string(domain.FlagExpired), Value: false},
		{Key: string(domain.FlagViolations), Value: false},
	})
}

func (r *MotorcycleRepository) TouchLastSeen(ctx context.Context, plate string, seenAt time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "plate_number", Value: plate}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_seen_at", Value: seenAt.UTC()}}}},
	)
	if err != nil {
		return fmt.Errorf("MotorcycleRepository.TouchLastSeen: %w", err)
	}
	return nil
}

func (r *MotorcycleRepository) Delete(ctx context.Context, plate string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "plate_number", Value: plate}})
	if err != nil {
		return fmt.Errorf("MotorcycleRepository.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// updateOne applies $set to one plate and stamps updated_at. A zero match count is ErrNotFound.
func (r *MotorcycleRepository) updateOne(ctx context.Context, op, plate string, set bson.D) error {
	set = append(set, bson.E{Key: "updated_at", Value: time.Now().UTC()})
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "plate_number", Value: plate}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("MotorcycleRepository.%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
