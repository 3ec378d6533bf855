package postgresql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

func newMock(t *testing.T) (repository.MotorcycleRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPgMotorcycleRepository(db), mock
}

var motorcycleRowColumns = []string{"plate_number", "region", "blacklisted", "expired", "violations", "last_seen_at", "created_at", "updated_at"}

func TestPgMotorcycleCreate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO motorcycles")).
		WithArgs("ABC 1234", "NCR", false, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	m, err := repo.Create(context.Background(), &domain.Motorcycle{PlateNumber: "ABC 1234", Region: "NCR"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if m.CreatedAt.IsZero() {
		t.Error("Create() did not set created_at")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPgMotorcycleCreateDuplicate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO motorcycles")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "motorcycles_plate_number_key"})

	_, err := repo.Create(context.Background(), &domain.Motorcycle{PlateNumber: "ABC 1234"})
	if !errors.Is(err, repository.ErrDuplicateEntry) {
		t.Fatalf("Create() error = %v, want ErrDuplicateEntry", err)
	}
}

func TestPgMotorcycleFindByPlate(t *testing.T) {
	repo, mock := newMock(t)
	seen := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM motorcycles WHERE plate_number = $1")).
		WithArgs("ABC 1234").
		WillReturnRows(sqlmock.NewRows(motorcycleRowColumns).
			AddRow("ABC 1234", "NCR", true, false, false, seen, seen, seen))

	m, err := repo.FindByPlate(context.Background(), "ABC 1234")
	if err != nil {
		t.Fatalf("FindByPlate() error: %v", err)
	}
	if !m.Blacklisted || m.LastSeenAt == nil || !m.LastSeenAt.Equal(seen) {
		t.Errorf("FindByPlate() = %+v, want blacklisted record last seen %v", m, seen)
	}
}

func TestPgMotorcycleFindByPlateMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM motorcycles WHERE plate_number = $1")).
		WillReturnRows(sqlmock.NewRows(motorcycleRowColumns))

	_, err := repo.FindByPlate(context.Background(), "NONE 1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("FindByPlate() error = %v, want ErrNotFound", err)
	}
}

func TestPgMotorcycleList(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	expired := true
	mock.ExpectQuery(regexp.QuoteMeta("WHERE expired = $1 AND region = $2 ORDER BY plate_number LIMIT $3 OFFSET $4")).
		WithArgs(true, "NCR", repository.DefaultListLimit, 0).
		WillReturnRows(sqlmock.NewRows(motorcycleRowColumns).
			AddRow("AAA 111", "NCR", false, true, false, nil, now, now).
			AddRow("BBB 222", "NCR", false, true, true, nil, now, now))

	got, err := repo.List(context.Background(), domain.MotorcycleFilterDTO{Expired: &expired, Region: "NCR"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 || got[1].PlateNumber != "BBB 222" || got[0].LastSeenAt != nil {
		t.Errorf("List() = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPgMotorcycleSetFlag(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE motorcycles SET violations = $1")).
		WithArgs(true, "ABC 1234").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE motorcycles SET blacklisted = $1")).
		WithArgs(true, "NONE 1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetFlag(context.Background(), "ABC 1234", domain.FlagViolations, true); err != nil {
		t.Fatalf("SetFlag() error: %v", err)
	}
	if err := repo.SetFlag(context.Background(), "NONE 1", domain.FlagBlacklisted, true); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("SetFlag() on missing plate error = %v, want ErrNotFound", err)
	}
	if err := repo.SetFlag(context.Background(), "ABC 1234", domain.StatusFlag("region; DROP TABLE motorcycles"), true); err == nil {
		t.Fatal("SetFlag() with unknown flag = nil, want error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPgMotorcycleClearAndDelete(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET blacklisted = FALSE, expired = FALSE, violations = FALSE")).
		WithArgs("ABC 1234").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM motorcycles WHERE plate_number = $1")).
		WithArgs("ABC 1234").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM motorcycles WHERE plate_number = $1")).
		WithArgs("ABC 1234").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := repo.ClearStatuses(ctx, "ABC 1234"); err != nil {
		t.Fatalf("ClearStatuses() error: %v", err)
	}
	if err := repo.Delete(ctx, "ABC 1234"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := repo.Delete(ctx, "ABC 1234"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestScanEventDeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()
	repo := NewPgScanEventRepository(db)

	cutoff := time.Now().Add(-24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scan_events WHERE created_at < $1")).
		WithArgs(cutoff.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error: %v", err)
	}
	if n != 7 {
		t.Errorf("DeleteOlderThan() = %d, want 7", n)
	}
}

func TestScanEventCreateLongFallbackPlate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()
	repo := NewPgScanEventRepository(db)

	event := &domain.ScanEvent{
		EventID:        "6f1c2a8e-0b7d-4c3e-9a51-2d4f6e8a0b1c",
		Source:         domain.SourceUpload,
		Provider:       "huawei",
		DetectedPlate:  "REPUBLIC OF THE PHILIPPINES",
		DetectedRegion: "MOTORCYCLE",
		CreatedAt:      time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scan_events")).
		WithArgs(event.EventID, event.Source, sqlmock.AnyArg(), "huawei", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), false, false, false, false, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), event); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
