package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/plate"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

var ErrEmptyPlate = errors.New("plate number is empty")

// MotorcycleService manages the plate registry: insertion, status flags and lookups.
type MotorcycleService struct {
	repo repository.MotorcycleRepository
}

func NewMotorcycleService(repo repository.MotorcycleRepository) *MotorcycleService {
	return &MotorcycleService{repo: repo}
}

func normalizePlate(raw string) (string, error) {
	p := plate.Normalize(raw)
	if p == "" {
		return "", ErrEmptyPlate
	}
	return p, nil
}

// Register inserts a new plate. The region defaults to REGION UNKNOWN.
func (s *MotorcycleService) Register(ctx context.Context, dto domain.RegisterMotorcycleDTO) (*domain.Motorcycle, error) {
	p, err := normalizePlate(dto.PlateNumber)
	if err != nil {
		return nil, err
	}
	region := plate.NormalizeRegion(dto.Region)
	if region == "" {
		region = domain.UnknownRegion
	}

	m, err := s.repo.Create(ctx, &domain.Motorcycle{
		PlateNumber: p,
		Region:      region,
		Blacklisted: dto.Blacklisted,
		Expired:     dto.Expired,
		Violations:  dto.Violations,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("MotorcycleService: registered plate '%s' in region '%s'", m.PlateNumber, m.Region)
	return m, nil
}

func (s *MotorcycleService) FlagBlacklisted(ctx context.Context, plateNumber string) (*domain.Motorcycle, error) {
	return s.setFlag(ctx, plateNumber, domain.FlagBlacklisted)
}

func (s *MotorcycleService) FlagExpired(ctx context.Context, plateNumber string) (*domain.Motorcycle, error) {
	return s.setFlag(ctx, plateNumber, domain.FlagExpired)
}

func (s *MotorcycleService) FlagViolations(ctx context.Context, plateNumber string) (*domain.Motorcycle, error) {
	return s.setFlag(ctx, plateNumber, domain.FlagViolations)
}

func (s *MotorcycleService) setFlag(ctx context.Context, plateNumber string, flag domain.StatusFlag) (*domain.Motorcycle, error) {
	p, err := normalizePlate(plateNumber)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetFlag(ctx, p, flag, true); err != nil {
		return nil, err
	}
	log.Printf("MotorcycleService: set %s on plate '%s'", flag, p)
	return s.repo.FindByPlate(ctx, p)
}

func (s *MotorcycleService) ClearStatuses(ctx context.Context, plateNumber string) (*domain.Motorcycle, error) {
	p, err := normalizePlate(plateNumber)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearStatuses(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.FindByPlate(ctx, p)
}

func (s *MotorcycleService) Delete(ctx context.Context, plateNumber string) error {
	p, err := normalizePlate(plateNumber)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p); err != nil {
		return err
	}
	log.Printf("MotorcycleService: deleted plate '%s'", p)
	return nil
}

func (s *MotorcycleService) Get(ctx context.Context, plateNumber string) (*domain.Motorcycle, error) {
	p, err := normalizePlate(plateNumber)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByPlate(ctx, p)
}

func (s *MotorcycleService) List(ctx context.Context, filter domain.MotorcycleFilterDTO) ([]domain.Motorcycle, error) {
	if filter.Region != "" {
		filter.Region = plate.NormalizeRegion(filter.Region)
	}
	return s.repo.List(ctx, filter)
}

// Lookup answers whether a plate is registered and which record actions are allowed.
// An absent plate is not an error.
func (s *MotorcycleService) Lookup(ctx context.Context, plateNumber string) (*domain.RecordStatus, error) {
	p, err := normalizePlate(plateNumber)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindByPlate(ctx, p)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("MotorcycleService.Lookup: %w", err)
	}
	if errors.Is(err, repository.ErrNotFound) {
		m = nil
	}
	return &domain.RecordStatus{
		PlateNumber: p,
		Exists:      m != nil,
		Record:      m,
		Actions:     domain.ActionsFor(m),
	}, nil
}

func (s *MotorcycleService) TouchLastSeen(ctx context.Context, plateNumber string, seenAt time.Time) error {
	return s.repo.TouchLastSeen(ctx, plateNumber, seenAt)
}
