package database

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/Tomlord1122/task-manager/internal/config"
	"github.com/Tomlord1122/task-manager/internal/database/dbtest"
	"github.com/Tomlord1122/task-manager/internal/logger"
)

var testDB config.DatabaseConfig

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() || os.Getenv("SKIP_DOCKER_TESTS") != "" {
		os.Exit(0)
	}

	cfg, teardown, err := dbtest.StartPostgres(context.Background())
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}
	testDB = cfg

	code := m.Run()

	if err := teardown(context.Background()); err != nil {
		log.Printf("could not teardown postgres container: %v", err)
	}
	os.Exit(code)
}

func TestNew(t *testing.T) {
	srv, err := New(testDB, logger.Discard())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer srv.Close()

	if srv.GetDB() == nil {
		t.Fatal("GetDB() returned nil")
	}
}

func TestMigrate(t *testing.T) {
	srv, err := New(testDB, logger.Discard())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer srv.Close()

	if err := srv.Migrate(); err != nil {
		t.Fatalf("Migrate() returned error: %v", err)
	}
	for _, table := range []string{"users", "tasks"} {
		if !srv.GetDB().Migrator().HasTable(table) {
			t.Errorf("expected table %q to exist", table)
		}
	}
}

func TestHealth(t *testing.T) {
	srv, err := New(testDB, logger.Discard())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer srv.Close()

	stats := srv.Health()

	if stats["status"] != "up" {
		t.Fatalf("expected status to be up, got %s", stats["status"])
	}
	if _, ok := stats["error"]; ok {
		t.Fatalf("expected error not to be present")
	}
	if stats["message"] != "It's healthy" {
		t.Fatalf("expected message to be 'It's healthy', got %s", stats["message"])
	}
}

func TestClose(t *testing.T) {
	srv, err := New(testDB, logger.Discard())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	if srv.Close() != nil {
		t.Fatalf("expected Close() to return nil")
	}
	if srv.Health()["status"] != "down" {
		t.Fatalf("expected status to be down after Close()")
	}
}
