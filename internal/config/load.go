package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/finsights-backend/internal/platform/envutil"
)

// UnmarshalYAML accepts "5s" style strings or integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n)
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
		},
		DB: DBConfig{
			Driver:          "sqlite",
			Path:            "data.sqlite",
			LockTimeout:     Duration{Duration: 5 * time.Second},
			SlowThreshold:   Duration{Duration: time.Second},
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration{Duration: 30 * time.Minute},
			AutoMigrate:     true,
		},
		Redis: RedisConfig{Channel: "finsights:documents"},
		Otel: OtelConfig{
			ServiceName: "finsights",
			Exporter:    "otlp",
			SampleRatio: 1,
		},
		Clock: ClockConfig{
			Timezone: "Asia/Kolkata",
			Layout:   "2006-01-02T15:04:05",
		},
		Artifacts: ArtifactsConfig{
			PDFDir:      "pdf",
			TextDir:     "text",
			InsightsDir: "insights",
		},
		Retention: RetentionConfig{Days: 7, BatchSize: 200, Concurrency: 4},
	}
}

// Load reads the optional YAML file then applies environment overrides.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("FINSIGHTS_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		// Decoding onto the defaults keeps keys the file omits.
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("FINSIGHTS_HTTP_ADDR", cfg.HTTP.Addr)
	if v := envutil.String("CORS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.HTTP.CORSOrigins = splitCSV(v)
	}

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Path = envutil.String("DB_PATH", cfg.DB.Path)
	cfg.DB.DSN = envutil.String("DATABASE_URL", cfg.DB.DSN)
	cfg.DB.LockTimeout.Duration = envutil.Duration("DB_LOCK_TIMEOUT", cfg.DB.LockTimeout.Duration)
	cfg.DB.MaxOpenConns = envutil.Int("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.AutoMigrate = envutil.Bool("DB_AUTO_MIGRATE", cfg.DB.AutoMigrate)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Exporter = envutil.String("OTEL_TRACES_EXPORTER", cfg.Otel.Exporter)
	if v := envutil.String("OTEL_TRACES_SAMPLER_ARG", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Otel.SampleRatio = f
		}
	}

	cfg.Clock.Timezone = envutil.String("FINSIGHTS_TIMEZONE", cfg.Clock.Timezone)
	cfg.Clock.Layout = envutil.String("FINSIGHTS_TIMESTAMP_LAYOUT", cfg.Clock.Layout)

	cfg.Artifacts.PDFDir = envutil.String("PDF_DIR", cfg.Artifacts.PDFDir)
	cfg.Artifacts.TextDir = envutil.String("TEXT_DIR", cfg.Artifacts.TextDir)
	cfg.Artifacts.InsightsDir = envutil.String("INSIGHTS_DIR", cfg.Artifacts.InsightsDir)
	cfg.Artifacts.GCSBucket = envutil.String("ARTIFACT_GCS_BUCKET", cfg.Artifacts.GCSBucket)
	cfg.Artifacts.GCSEmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.Artifacts.GCSEmulatorHost)

	cfg.Retention.Days = envutil.Int("RETENTION_DAYS", cfg.Retention.Days)
}

func (cfg *Config) normalize() error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}

	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	switch cfg.DB.Driver {
	case "", "sqlite", "sqlite3":
		cfg.DB.Driver = "sqlite"
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return errors.New("db.path is required for the sqlite driver")
		}
	case "postgres", "postgresql":
		cfg.DB.Driver = "postgres"
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return errors.New("db.dsn (DATABASE_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported db.driver %q", cfg.DB.Driver)
	}
	if cfg.DB.LockTimeout.Duration <= 0 {
		return errors.New("db.lock_timeout must be positive")
	}

	if cfg.Otel.SampleRatio < 0 || cfg.Otel.SampleRatio > 1 {
		return fmt.Errorf("otel.sample_ratio %v outside [0,1]", cfg.Otel.SampleRatio)
	}
	if _, err := time.LoadLocation(cfg.Clock.Timezone); err != nil {
		return fmt.Errorf("clock.timezone: %w", err)
	}
	if cfg.Retention.Days < 0 {
		return errors.New("retention.days must not be negative")
	}
	if cfg.Retention.BatchSize <= 0 {
		cfg.Retention.BatchSize = 200
	}
	if cfg.Retention.Concurrency <= 0 {
		cfg.Retention.Concurrency = 4
	}
	return nil
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
