package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

type DBConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	// Path is the sqlite database file. ":memory:" keeps everything in process.
	Path string `yaml:"path"`
	// DSN is the postgres connection string.
	DSN string `yaml:"dsn"`

	// LockTimeout bounds how long a transition waits on a row held by another
	// writer before failing with busy.
	LockTimeout     Duration `yaml:"lock_timeout"`
	SlowThreshold   Duration `yaml:"slow_threshold"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Exporter    string  `yaml:"exporter"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type ClockConfig struct {
	Timezone string `yaml:"timezone"`
	Layout   string `yaml:"layout"`
}

type ArtifactsConfig struct {
	PDFDir      string `yaml:"pdf_dir"`
	TextDir     string `yaml:"text_dir"`
	InsightsDir string `yaml:"insights_dir"`
	// GCSBucket switches artifact cleanup to Cloud Storage when set.
	GCSBucket string `yaml:"gcs_bucket"`
	// GCSEmulatorHost points the storage client at a fake-gcs server.
	GCSEmulatorHost string `yaml:"gcs_emulator_host"`
}

type RetentionConfig struct {
	Days        int `yaml:"days"`
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"`
}

type Config struct {
	Env       string          `yaml:"env"`
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	Otel      OtelConfig      `yaml:"otel"`
	Clock     ClockConfig     `yaml:"clock"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Retention RetentionConfig `yaml:"retention"`
}
