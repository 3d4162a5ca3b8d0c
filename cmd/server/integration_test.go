//go:build integration

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/internal/config"
	"github.com/liamcoop/scholarship/rules"
)

// setupTestDB creates a PostgreSQL testcontainer and applies the migrations
func setupTestDB(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())

	var m *migrate.Migrate
	for i := 0; i < 30; i++ {
		m, err = migrate.New("file://../../migrations", connStr)
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Failed to create migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	m.Close()

	cleanup := func() {
		postgres.Terminate(ctx)
	}

	return connStr, cleanup
}

func seedApplicants(t *testing.T, connStr string) {
	db, err := sql.Open(applicant.DriverPostgres, connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO applicants (id, name, cgpa, family_income, co_curricular_score,
			community_service_hours, current_semester, disciplinary_actions)
		VALUES
			('a-100', 'Merit', 3.9, 6000, 88, 30, 6, 0),
			('a-200', 'Record', 3.4, 9000, 75, 5, 4, 3)
	`)
	if err != nil {
		t.Fatalf("Failed to seed applicants: %v", err)
	}
}

// TestEndToEnd_ApplicantEvaluation evaluates stored applicants through the HTTP API
func TestEndToEnd_ApplicantEvaluation(t *testing.T) {
	connStr, cleanup := setupTestDB(t)
	defer cleanup()
	seedApplicants(t, connStr)

	ctx := context.Background()
	src, err := applicant.OpenSQLSource(ctx, applicant.DriverPostgres, connStr)
	if err != nil {
		t.Fatalf("OpenSQLSource() failed: %v", err)
	}
	defer src.Close()

	server, err := NewServer(ctx, config.Default(), rules.NewDefaultSource(), src, nil)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	tests := []struct {
		id       string
		decision rules.Decision
	}{
		{"a-100", rules.DecisionAwardFull},
		{"a-200", rules.DecisionReject},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			var resp EvaluateResponse
			status := doRequest(t, http.MethodGet, ts.URL+"/api/v1/applicants/"+tt.id+"/evaluation", nil, &resp)
			if status != http.StatusOK {
				t.Fatalf("status = %d", status)
			}
			if resp.Decision != tt.decision || resp.ApplicantID != tt.id {
				t.Errorf("got %s for %s, want %s", resp.Decision, resp.ApplicantID, tt.decision)
			}
		})
	}

	if status := doRequest(t, http.MethodGet, ts.URL+"/api/v1/applicants/a-404/evaluation", nil, nil); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}
