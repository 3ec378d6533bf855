package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

type ScanEventRepository struct {
	coll *mongo.Collection
}

func NewScanEventRepository(coll *mongo.Collection) *ScanEventRepository {
	return &ScanEventRepository{coll: coll}
}

var _ repository.ScanEventRepository = (*ScanEventRepository)(nil)

func (r *ScanEventRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		uniqueIndex("event_id"),
		{Keys: bson.D{{Key: "detected_plate", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("ScanEventRepository.EnsureIndexes: %w", err)
	}
	return nil
}

func (r *ScanEventRepository) Create(ctx context.Context, event *domain.ScanEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: scan event '%s'", repository.ErrDuplicateEntry, event.EventID)
		}
		return fmt.Errorf("ScanEventRepository.Create: %w", err)
	}
	return nil
}

func (r *ScanEventRepository) ListRecent(ctx context.Context, filter domain.ScanEventFilterDTO) ([]domain.ScanEvent, error) {
	query := bson.D{}
	if filter.Plate != "" {
		query = append(query, bson.E{Key: "detected_plate", Value: filter.Plate})
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(repository.ListLimit(filter.Limit)))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("ScanEventRepository.ListRecent: %w", err)
	}
	events := []domain.ScanEvent{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("ScanEventRepository.ListRecent (decoding): %w", err)
	}
	return events, nil
}

func (r *ScanEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "created_at", Value: bson.D{{Key: "$lt", Value: cutoff.UTC()}}}})
	if err != nil {
		return 0, fmt.Errorf("ScanEventRepository.DeleteOlderThan: %w", err)
	}
	return res.DeletedCount, nil
}
