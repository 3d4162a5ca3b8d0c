package applicant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const selectColumns = `id, name, cgpa, family_income, co_curricular_score,
	community_service_hours, current_semester, disciplinary_actions`

// SQLSource reads applicants from the applicants table created by the migrations
type SQLSource struct {
	db     *sql.DB
	driver string
}

// NewSQLSource wraps an open database handle. driver selects the placeholder syntax.
func NewSQLSource(db *sql.DB, driver string) (*SQLSource, error) {
	if err := checkDriver(driver); err != nil {
		return nil, err
	}
	return &SQLSource{db: db, driver: driver}, nil
}

func checkDriver(driver string) error {
	switch driver {
	case DriverPostgres, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported applicant database driver %q", driver)
	}
}

// OpenSQLSource opens and pings the database
func OpenSQLSource(ctx context.Context, driver, dsn string) (*SQLSource, error) {
	if err := checkDriver(driver); err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open applicant database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping applicant database: %w", err)
	}
	return &SQLSource{db: db, driver: driver}, nil
}

func (s *SQLSource) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Get retrieves an applicant by ID
func (s *SQLSource) Get(ctx context.Context, id string) (*Applicant, error) {
	query := fmt.Sprintf(`SELECT %s FROM applicants WHERE id = %s`, selectColumns, s.placeholder(1))

	a, err := scanApplicant(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get applicant %s: %w", id, err)
	}
	return a, nil
}

// List returns every applicant ordered by ID
func (s *SQLSource) List(ctx context.Context) ([]*Applicant, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM applicants ORDER BY id ASC`, selectColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	defer rows.Close()

	var list []*Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicant: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applicants: %w", err)
	}
	return list, nil
}

// Close releases the database handle
func (s *SQLSource) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplicant(row rowScanner) (*Applicant, error) {
	var a Applicant
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.CGPA,
		&a.FamilyIncome,
		&a.CoCurricularScore,
		&a.CommunityServiceHours,
		&a.CurrentSemester,
		&a.DisciplinaryActions,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
