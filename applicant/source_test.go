package applicant

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemorySource(t *testing.T) {
	src := NewMemorySource(
		Applicant{ID: "b", CGPA: 3.1},
		Applicant{ID: "a", CGPA: 3.9},
	)
	ctx := context.Background()

	a, err := src.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if a.CGPA != 3.9 {
		t.Errorf("CGPA = %v, want 3.9", a.CGPA)
	}

	if _, err := src.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := src.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("List() should be ordered by ID, got %+v", list)
	}

	// returned records are copies
	a.CGPA = 0
	again, _ := src.Get(ctx, "a")
	if again.CGPA != 3.9 {
		t.Error("caller mutation leaked into source")
	}
}

// setupSQLite creates a file-backed sqlite database with the applicant schema
func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open(DriverSQLite, filepath.Join(t.TempDir(), "applicants.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL, err := os.ReadFile(filepath.Join("..", "migrations", "000001_create_applicants.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func insertApplicant(t *testing.T, db *sql.DB, a Applicant) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO applicants (id, name, cgpa, family_income, co_curricular_score,
			community_service_hours, current_semester, disciplinary_actions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.CGPA, a.FamilyIncome, a.CoCurricularScore,
		a.CommunityServiceHours, a.CurrentSemester, a.DisciplinaryActions)
	if err != nil {
		t.Fatalf("Failed to insert applicant: %v", err)
	}
}

func TestSQLSourceSQLite(t *testing.T) {
	db := setupSQLite(t)
	insertApplicant(t, db, Applicant{
		ID: "s-002", Name: "Bea", CGPA: 2.1, FamilyIncome: 3000,
		CoCurricularScore: 40, CommunityServiceHours: 2, CurrentSemester: 5,
	})
	insertApplicant(t, db, Applicant{
		ID: "s-001", Name: "Ari", CGPA: 3.8, FamilyIncome: 7000,
		CoCurricularScore: 85, CommunityServiceHours: 20, CurrentSemester: 4,
	})

	src, err := NewSQLSource(db, DriverSQLite)
	if err != nil {
		t.Fatalf("NewSQLSource() failed: %v", err)
	}
	ctx := context.Background()

	a, err := src.Get(ctx, "s-001")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if a.Name != "Ari" || a.CGPA != 3.8 || a.FamilyIncome != 7000 || a.CoCurricularScore != 85 {
		t.Errorf("unexpected applicant %+v", a)
	}

	if _, err := src.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := src.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "s-001" {
		t.Errorf("List() should be ordered by ID, got %+v", list)
	}
}

func TestOpenSQLSource(t *testing.T) {
	ctx := context.Background()

	src, err := OpenSQLSource(ctx, DriverSQLite, filepath.Join(t.TempDir(), "open.db"))
	if err != nil {
		t.Fatalf("OpenSQLSource() failed: %v", err)
	}
	defer src.Close()

	if _, err := OpenSQLSource(ctx, "mysql", "dsn"); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if _, err := NewSQLSource(nil, "oracle"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
