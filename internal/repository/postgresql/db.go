package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/config"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

const uniqueViolation = "23505"

func NewDB(cfg *config.Config) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	db, err := sql.Open("pgx", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewStore opens the database, applies the schema and returns the SQL backed repositories.
func NewStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	db, err := NewDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &repository.Store{
		Users:       NewPgUserRepository(db),
		Motorcycles: NewPgMotorcycleRepository(db),
		ScanEvents:  NewPgScanEventRepository(db),
		Close: func(context.Context) error {
			return db.Close()
		},
	}, nil
}

// isUniqueViolation reports whether err is a unique constraint failure on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
