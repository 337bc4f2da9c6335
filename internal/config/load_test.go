package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FINSIGHTS_CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "data.sqlite" {
		t.Fatalf("db: want sqlite/data.sqlite got %s/%s", cfg.DB.Driver, cfg.DB.Path)
	}
	if cfg.DB.LockTimeout.Duration != 5*time.Second {
		t.Fatalf("lock_timeout: want=5s got=%v", cfg.DB.LockTimeout.Duration)
	}
	if cfg.Clock.Timezone != "Asia/Kolkata" || cfg.Retention.Days != 7 {
		t.Fatalf("clock/retention defaults: %+v %+v", cfg.Clock, cfg.Retention)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "finsights.yaml")
	body := []byte(`
env: production
http:
  addr: ":9090"
db:
  driver: postgres
  dsn: postgres://finsights@localhost:5432/finsights
  lock_timeout: 250ms
retention:
  days: 30
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FINSIGHTS_CONFIG_PATH", path)
	t.Setenv("RETENTION_DAYS", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "production" || cfg.HTTP.Addr != ":9090" {
		t.Fatalf("env/addr: got %s %s", cfg.Env, cfg.HTTP.Addr)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.LockTimeout.Duration != 250*time.Millisecond {
		t.Fatalf("db: got %s %v", cfg.DB.Driver, cfg.DB.LockTimeout.Duration)
	}
	if cfg.Retention.Days != 14 {
		t.Fatalf("retention.days: want=14 got=%d", cfg.Retention.Days)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Clock.Layout != "2006-01-02T15:04:05" {
		t.Fatalf("clock.layout: got %q", cfg.Clock.Layout)
	}
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	t.Setenv("FINSIGHTS_CONFIG_PATH", "")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatalf("Load: want error for postgres without dsn")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("FINSIGHTS_CONFIG_PATH", "")
	t.Setenv("DB_DRIVER", "mysql")
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatalf("Load: want error for unknown driver")
	}
}
