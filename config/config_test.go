package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Web.LowStockThreshold != 5 {
		t.Errorf("LowStockThreshold = %d, want 5", cfg.Web.LowStockThreshold)
	}
	if cfg.MessagingEnabled() {
		t.Error("messaging should be disabled by default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Web.Port)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clothstock.yaml")
	yml := `
database:
  driver: postgres
  postgres:
    host: db.internal
web:
  port: 9090
  low_stock_threshold: 3
messaging:
  backend: kafka
  outbox_drain_interval: 2s
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Postgres.Host != "db.internal" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Database.Postgres.Port != 5432 {
		t.Errorf("unset keys should keep defaults, port = %d", cfg.Database.Postgres.Port)
	}
	if cfg.Web.Port != 9090 || cfg.Web.LowStockThreshold != 3 {
		t.Errorf("web = %+v", cfg.Web)
	}
	if !cfg.MessagingEnabled() {
		t.Error("kafka backend should enable messaging")
	}
	if cfg.Messaging.OutboxDrainInterval != 2*time.Second {
		t.Errorf("drain interval = %v", cfg.Messaging.OutboxDrainInterval)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CLOTHSTOCK_DB_DRIVER":     "postgres",
		"CLOTHSTOCK_PG_PORT":       "6543",
		"CLOTHSTOCK_REDIS_ADDR":    "cache:6379",
		"CLOTHSTOCK_KAFKA_BROKERS": "k1:9092,k2:9092",
		"CLOTHSTOCK_LOG_LEVEL":     "   ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Defaults()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.Postgres.Port != 6543 {
		t.Errorf("Port = %d", cfg.Database.Postgres.Port)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Address != "cache:6379" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if len(cfg.Messaging.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Messaging.Kafka.Brokers)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("blank override should be ignored, level = %q", cfg.Log.Level)
	}
}

func TestApplyEnvBadInt(t *testing.T) {
	cfg := Defaults()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "CLOTHSTOCK_WEB_PORT" {
			return "eighty", true
		}
		return "", false
	})
	if err == nil {
		t.Fatal("expected error for non-numeric port")
	}
	if _, ok := err.(*EnvError); !ok {
		t.Errorf("err = %T, want *EnvError", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CLOTHSTOCK_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLOTHSTOCK_TEST_DOTENV", "")
	os.Unsetenv("CLOTHSTOCK_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("CLOTHSTOCK_TEST_DOTENV"); got != "loaded" {
		t.Errorf("env = %q, want loaded", got)
	}
}
