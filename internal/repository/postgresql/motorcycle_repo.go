package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

type pgMotorcycleRepository struct {
	db *sql.DB
}

func NewPgMotorcycleRepository(db *sql.DB) repository.MotorcycleRepository {
	return &pgMotorcycleRepository{db: db}
}

const motorcycleColumns = `plate_number, region, blacklisted, expired, violations, last_seen_at, created_at, updated_at`

// EnsureIndexes is satisfied by the UNIQUE constraint created in Migrate.
func (r *pgMotorcycleRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (r *pgMotorcycleRepository) Create(ctx context.Context, m *domain.Motorcycle) (*domain.Motorcycle, error) {
	query := `INSERT INTO motorcycles (plate_number, region, blacklisted, expired, violations, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		m.PlateNumber, m.Region, m.Blacklisted, m.Expired, m.Violations,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "motorcycles_plate_number_key") {
			return nil, fmt.Errorf("%w: plate '%s'", repository.ErrDuplicateEntry, m.PlateNumber)
		}
		return nil, fmt.Errorf("MotorcycleRepository.Create: %w", err)
	}
	m.CreatedAt = m.CreatedAt.In(time.UTC)
	m.UpdatedAt = m.UpdatedAt.In(time.UTC)
	return m, nil
}

func (r *pgMotorcycleRepository) FindByPlate(ctx context.Context, plate string) (*domain.Motorcycle, error) {
	query := `SELECT ` + motorcycleColumns + ` FROM motorcycles WHERE plate_number = $1`
	m, err := scanMotorcycle(r.db.QueryRowContext(ctx, query, plate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("MotorcycleRepository.FindByPlate: %w", err)
	}
	return m, nil
}

func (r *pgMotorcycleRepository) List(ctx context.Context, filter domain.MotorcycleFilterDTO) ([]domain.Motorcycle, error) {
	var conditions []string
	var args []any
	addCondition := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Blacklisted != nil {
		addCondition("blacklisted", *filter.Blacklisted)
	}
	if filter.Expired != nil {
		addCondition("expired", *filter.Expired)
	}
	if filter.Violations != nil {
		addCondition("violations", *filter.Violations)
	}
	if filter.Region != "" {
		addCondition("region", filter.Region)
	}

	query := `SELECT ` + motorcycleColumns + ` FROM motorcycles`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, repository.ListLimit(filter.Limit), max(filter.Offset, 0))
	query += fmt.Sprintf(" ORDER BY plate_number LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("MotorcycleRepository.List: %w", err)
	}
	defer rows.Close()

	motorcycles := []domain.Motorcycle{}
	for rows.Next() {
		m, err := scanMotorcycle(rows)
		if err != nil {
			return nil, fmt.Errorf("MotorcycleRepository.List (scanning row): %w", err)
		}
		motorcycles = append(motorcycles, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("MotorcycleRepository.List (rows error): %w", err)
	}
	return motorcycles, nil
}

func (r *pgMotorcycleRepository) SetFlag(ctx context.Context, plate string, flag domain.StatusFlag, value bool) error {
	if !flag.Valid() {
		return fmt.Errorf("MotorcycleRepository.SetFlag: unknown status flag '%s'", flag)
	}
	// flag is one of three fixed column names, checked above.
	query := fmt.Sprintf(`UPDATE motorcycles SET %s = $1, updated_at = CURRENT_TIMESTAMP WHERE plate_number = $2`, flag)
	return r.execAffectingOne(ctx, "SetFlag", query, value, plate)
}

func (r *pgMotorcycleRepository) ClearStatuses(ctx context.Context, plate string) error {
	query := `UPDATE motorcycles
	           SET blacklisted = FALSE, expired = FALSE, violations = FALSE, updated_at = CURRENT_TIMESTAMP
	           WHERE plate_number = $1`
	return r.execAffectingOne(ctx, "ClearStatuses", query, plate)
}

func (r *pgMotorcycleRepository) TouchLastSeen(ctx context.Context, plate string, seenAt time.Time) error {
	query := `UPDATE motorcycles SET last_seen_at = $1 WHERE plate_number = $2`
	if _, err := r.db.ExecContext(ctx, query, seenAt.UTC(), plate); err != nil {
		return fmt.Errorf("MotorcycleRepository.TouchLastSeen: %w", err)
	}
	return nil
}

func (r *pgMotorcycleRepository) Delete(ctx context.Context, plate string) error {
	query := `DELETE FROM motorcycles WHERE plate_number = $1`
	return r.execAffectingOne(ctx, "Delete", query, plate)
}

func (r *pgMotorcycleRepository) execAffectingOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("MotorcycleRepository.%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("MotorcycleRepository.%s (checking rows affected): %w", op, err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMotorcycle(row rowScanner) (*domain.Motorcycle, error) {
	m := &domain.Motorcycle{}
	var lastSeen null.Time
	if err := row.Scan(
		&m.PlateNumber, &m.Region, &m.Blacklisted, &m.Expired, &m.Violations,
		&lastSeen, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		t := lastSeen.Time.In(time.UTC)
		m.LastSeenAt = &t
	}
	m.CreatedAt = m.CreatedAt.In(time.UTC)
	m.UpdatedAt = m.UpdatedAt.In(time.UTC)
	return m, nil
}
