package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

type pgScanEventRepository struct {
	db *sql.DB
}

func NewPgScanEventRepository(db *sql.DB) repository.ScanEventRepository {
	return &pgScanEventRepository{db: db}
}

func (r *pgScanEventRepository) Create(ctx context.Context, event *domain.ScanEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO scan_events
		(event_id, source, device_id, provider, detected_plate, detected_region, confidence, matched,
		 blacklisted, expired, violations, image_key, annotated_key, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query,
		event.EventID, event.Source,
		null.NewString(event.DeviceID, event.DeviceID != ""),
		event.Provider,
		null.NewString(event.DetectedPlate, event.DetectedPlate != ""),
		null.NewString(event.DetectedRegion, event.DetectedRegion != ""),
		event.Confidence, event.Matched,
		event.Flags.Blacklisted, event.Flags.Expired, event.Flags.Violations,
		null.NewString(event.ImageKey, event.ImageKey != ""),
		null.NewString(event.AnnotatedKey, event.AnnotatedKey != ""),
		null.NewString(event.ErrorMessage, event.ErrorMessage != ""),
		event.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("%w: scan event '%s'", repository.ErrDuplicateEntry, event.EventID)
		}
		return fmt.Errorf("ScanEventRepository.Create: %w", err)
	}
	return nil
}

func (r *pgScanEventRepository) ListRecent(ctx context.Context, filter domain.ScanEventFilterDTO) ([]domain.ScanEvent, error) {
	query := `SELECT event_id, source, device_id, provider, detected_plate, detected_region, confidence, matched,
		blacklisted, expired, violations, image_key, annotated_key, error_message, created_at
		FROM scan_events`
	args := []any{}
	if filter.Plate != "" {
		args = append(args, filter.Plate)
		query += ` WHERE detected_plate = $1`
	}
	args = append(args, repository.ListLimit(filter.Limit))
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ScanEventRepository.ListRecent: %w", err)
	}
	defer rows.Close()

	events := []domain.ScanEvent{}
	for rows.Next() {
		var e domain.ScanEvent
		var deviceID, plate, region, imageKey, annotatedKey, errMsg null.String
		if err := rows.Scan(
			&e.EventID, &e.Source, &deviceID, &e.Provider, &plate, &region, &e.Confidence, &e.Matched,
			&e.Flags.Blacklisted, &e.Flags.Expired, &e.Flags.Violations,
			&imageKey, &annotatedKey, &errMsg, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ScanEventRepository.ListRecent (scanning row): %w", err)
		}
		e.DeviceID = deviceID.ValueOrZero()
		e.DetectedPlate = plate.ValueOrZero()
		e.DetectedRegion = region.ValueOrZero()
		e.ImageKey = imageKey.ValueOrZero()
		e.AnnotatedKey = annotatedKey.ValueOrZero()
		e.ErrorMessage = errMsg.ValueOrZero()
		e.CreatedAt = e.CreatedAt.In(time.UTC)
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ScanEventRepository.ListRecent (rows error): %w", err)
	}
	return events, nil
}

func (r *pgScanEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scan_events WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("ScanEventRepository.DeleteOlderThan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ScanEventRepository.DeleteOlderThan (checking rows affected): %w", err)
	}
	return n, nil
}
