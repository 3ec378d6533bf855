package postgresql

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()
	for _, stmt := range schema {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// OCR can fall back to any text line as the plate, e.g. "REPUBLIC OF THE PHILIPPINES",
// so plate columns must not truncate or reject long values.
func TestPlateColumnsAreUnbounded(t *testing.T) {
	all := strings.Join(schema, "\n")
	for _, column := range []string{"plate_number", "detected_plate"} {
		re := regexp.MustCompile(`(?m)^\s*` + column + `\s+TEXT\b`)
		if !re.MatchString(all) {
			t.Errorf("column %s is not declared TEXT", column)
		}
	}
}
