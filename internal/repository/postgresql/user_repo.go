package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) repository.UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (username, password_hash, role, created_at, updated_at)
	           VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	var id int64
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Password, user.Role).Scan(&id, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return nil, fmt.Errorf("%w: username '%s'", repository.ErrDuplicateEntry, user.Username)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	user.ID = strconv.FormatInt(id, 10)
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id, username, password_hash, role, created_at, updated_at FROM users WHERE username = $1`
	return r.scanOne(ctx, "FindByUsername", query, username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	query := `SELECT id, username, password_hash, role, created_at, updated_at FROM users WHERE id = $1`
	return r.scanOne(ctx, "FindByID", query, numericID)
}

func (r *pgUserRepository) scanOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	var id int64
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&id, &user.Username, &user.Password, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.%s: %w", op, err)
	}
	user.ID = strconv.FormatInt(id, 10)
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}
