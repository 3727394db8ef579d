package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@db.internal:5432/popcorn", Options{
		MaxConns:               8,
		MinConns:               2,
		MaxConnIdleTime:        time.Minute,
		StatementCacheCapacity: 64,
	})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if cfg.MaxConns != 8 || cfg.MinConns != 2 {
		t.Fatalf("conns = %d/%d, want 8/2", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.MaxConnIdleTime != time.Minute {
		t.Fatalf("MaxConnIdleTime = %v", cfg.MaxConnIdleTime)
	}
	if cfg.ConnConfig.DefaultQueryExecMode != pgx.QueryExecModeCacheStatement || cfg.ConnConfig.StatementCacheCapacity != 64 {
		t.Fatalf("statement cache not applied")
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != applicationName {
		t.Fatalf("application_name = %q", got)
	}
}

func TestPoolConfigKeepsURLApplicationName(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost/popcorn?application_name=ops", Options{})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != "ops" {
		t.Fatalf("application_name = %q, want ops", got)
	}
}

func TestPoolConfigRejectsBadURL(t *testing.T) {
	if _, err := poolConfig("postgres://%zz", Options{}); err == nil || !strings.Contains(err.Error(), "parse db url") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	payload, err := migrationFS.ReadFile("migrations/0001_watched_entries.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(payload), "CREATE TABLE IF NOT EXISTS watched_entries") {
		t.Fatalf("unexpected migration contents")
	}
}

func TestNilStore(t *testing.T) {
	var s *Store
	s.Close()
	if err := s.HealthCheck(context.Background()); err == nil {
		t.Fatalf("expected error from nil store")
	}
}
