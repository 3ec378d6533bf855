package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

func TestScanEventRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create stamps time", func(mt *mtest.T) {
		repo := NewScanEventRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		event := &domain.ScanEvent{EventID: "evt-1", Source: domain.SourceUpload, DetectedPlate: "123 ABC"}
		if err := repo.Create(ctx, event); err != nil {
			mt.Fatalf("Create() error: %v", err)
		}
		if event.CreatedAt.IsZero() {
			mt.Error("Create() did not stamp created_at")
		}
	})

	mt.Run("create duplicate event id", func(mt *mtest.T) {
		repo := NewScanEventRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: motorcycle_db.scan_events index: event_id_1",
		}))

		err := repo.Create(ctx, &domain.ScanEvent{EventID: "evt-1"})
		if !errors.Is(err, repository.ErrDuplicateEntry) {
			mt.Fatalf("Create() error = %v, want ErrDuplicateEntry", err)
		}
	})

	mt.Run("list recent by plate", func(mt *mtest.T) {
		repo := NewScanEventRepository(mt.Coll)
		newer := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
		older := newer.Add(-time.Hour)
		first := mtest.CreateCursorResponse(1, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "event_id", Value: "evt-2"}, {Key: "detected_plate", Value: "123 ABC"}, {Key: "created_at", Value: newer}},
			bson.D{{Key: "event_id", Value: "evt-1"}, {Key: "detected_plate", Value: "123 ABC"}, {Key: "created_at", Value: older}},
		)
		end := mtest.CreateCursorResponse(0, namespace(mt), mtest.NextBatch)
		mt.AddMockResponses(first, end)

		got, err := repo.ListRecent(ctx, domain.ScanEventFilterDTO{Plate: "123 ABC", Limit: 5})
		if err != nil {
			mt.Fatalf("ListRecent() error: %v", err)
		}
		if len(got) != 2 || got[0].EventID != "evt-2" || !got[0].CreatedAt.Equal(newer) {
			mt.Errorf("ListRecent() = %+v, want evt-2 then evt-1", got)
		}

		cmd := mt.GetStartedEvent().Command
		if plate := cmd.Lookup("filter", "detected_plate").StringValue(); plate != "123 ABC" {
			mt.Errorf("filter detected_plate = %q, want 123 ABC", plate)
		}
		if dir := cmd.Lookup("sort", "created_at").AsInt64(); dir != -1 {
			mt.Errorf("sort created_at = %d, want -1 (newest first)", dir)
		}
		if limit := cmd.Lookup("limit").AsInt64(); limit != 5 {
			mt.Errorf("limit = %d, want 5", limit)
		}
	})

	mt.Run("delete older than", func(mt *mtest.T) {
		repo := NewScanEventRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 4}))

		cutoff := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
		n, err := repo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			mt.Fatalf("DeleteOlderThan() error: %v", err)
		}
		if n != 4 {
			mt.Errorf("DeleteOlderThan() = %d, want 4", n)
		}

		q := mt.GetStartedEvent().Command.Lookup("deletes").Array().Index(0).Value().Document().Lookup("q", "created_at", "$lt")
		if !q.Time().Equal(cutoff) {
			mt.Errorf("delete cutoff = %s, want %s", q.Time(), cutoff)
		}
	})
}
