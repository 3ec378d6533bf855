package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

// DefaultListLimit caps list queries that do not set their own limit.
const DefaultListLimit = 50

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// MotorcycleRepository is the data access layer for registered plates.
// Plate numbers are unique; every method that targets a plate returns ErrNotFound when it is absent.
type MotorcycleRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, m *domain.Motorcycle) (*domain.Motorcycle, error)
	FindByPlate(ctx context.Context, plate string) (*domain.Motorcycle, error)
	List(ctx context.Context, filter domain.MotorcycleFilterDTO) ([]domain.Motorcycle, error)
	SetFlag(ctx context.Context, plate string, flag domain.StatusFlag, value bool) error
	ClearStatuses(ctx context.Context, plate string) error
	TouchLastSeen(ctx context.Context, plate string, seenAt time.Time) error
	Delete(ctx context.Context, plate string) error
}

type ScanEventRepository interface {
	Create(ctx context.Context, event *domain.ScanEvent) error
	ListRecent(ctx context.Context, filter domain.ScanEventFilterDTO) ([]domain.ScanEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store bundles the repositories of one backend with its connection lifecycle.
type Store struct {
	Users       UserRepository
	Motorcycles MotorcycleRepository
	ScanEvents  ScanEventRepository
	Close       func(ctx context.Context) error
}

// ListLimit normalizes a caller supplied limit.
func ListLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultListLimit
	}
	return limit
}
