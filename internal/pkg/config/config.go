package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Places    PlacesConfig    `mapstructure:"places"`
	Fog       FogConfig       `mapstructure:"fog"`
	Photos    PhotosConfig    `mapstructure:"photos"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	BodyLimitMB  int    `mapstructure:"body_limit_mb"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the record store: the remote table store (postgres)
// or the local key-value file (bolt).
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	BoltPath string `mapstructure:"bolt_path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

type PlacesConfig struct {
	APIKey       string  `mapstructure:"api_key"`
	Language     string  `mapstructure:"language"`
	Region       string  `mapstructure:"region"`
	BiasLat      float64 `mapstructure:"bias_lat"`
	BiasLon      float64 `mapstructure:"bias_lon"`
	BiasRadiusM  float64 `mapstructure:"bias_radius_m"`
	MaxResults   int     `mapstructure:"max_results"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`
	CacheTTLSecs int     `mapstructure:"cache_ttl_secs"`
}

// FogConfig holds renderer defaults applied when a request leaves them out.
type FogConfig struct {
	Opacity      float64 `mapstructure:"opacity"`
	RadiusMeters float64 `mapstructure:"radius_meters"`
	Grain        bool    `mapstructure:"grain"`
	MaxWidth     int     `mapstructure:"max_width"`
	MaxHeight    int     `mapstructure:"max_height"`
	CacheTTLSecs int     `mapstructure:"cache_ttl_secs"`
}

type PhotosConfig struct {
	MaxBytes     int `mapstructure:"max_bytes"`
	MaxDimension int `mapstructure:"max_dimension"`
	MaxPixels    int `mapstructure:"max_pixels"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.body_limit_mb", 25)
	v.SetDefault("server.allow_origins", "http://localhost:5173, http://localhost:3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.bolt_path", "cafelog.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cafelog")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "cafelog")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "photo-queue")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("places.language", "zh-TW")
	v.SetDefault("places.region", "TW")
	v.SetDefault("places.bias_lat", 25.033)
	v.SetDefault("places.bias_lon", 121.5654)
	v.SetDefault("places.bias_radius_m", 50000.0)
	v.SetDefault("places.max_results", 10)
	v.SetDefault("places.timeout_secs", 10)
	v.SetDefault("places.cache_ttl_secs", 86400)
	v.SetDefault("fog.opacity", 0.8)
	v.SetDefault("fog.radius_meters", 200.0)
	v.SetDefault("fog.grain", false)
	v.SetDefault("fog.max_width", 4096)
	v.SetDefault("fog.max_height", 4096)
	v.SetDefault("fog.cache_ttl_secs", 60)
	v.SetDefault("photos.max_bytes", 2*1024*1024)
	v.SetDefault("photos.max_dimension", 1920)
	v.SetDefault("photos.max_pixels", 50_000_000)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CAFELOG_DATABASE_HOST → database.host
	v.SetEnvPrefix("CAFELOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.BodyLimitMB <= 0 {
		errs = append(errs, "server.body_limit_mb must be positive")
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	case DriverBolt:
		if c.Store.BoltPath == "" {
			errs = append(errs, "store.bolt_path is required for the bolt driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be %q or %q, got %q", DriverPostgres, DriverBolt, c.Store.Driver))
	}

	if c.Temporal.Enabled && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required when temporal is enabled")
	}
	if c.Fog.Opacity < 0 || c.Fog.Opacity > 1 {
		errs = append(errs, fmt.Sprintf("fog.opacity must be within [0,1], got %g", c.Fog.Opacity))
	}
	if c.Fog.RadiusMeters <= 0 {
		errs = append(errs, "fog.radius_meters must be positive")
	}
	if c.Fog.MaxWidth <= 0 || c.Fog.MaxHeight <= 0 {
		errs = append(errs, "fog.max_width and fog.max_height must be positive")
	}
	if c.Photos.MaxBytes <= 0 {
		errs = append(errs, "photos.max_bytes must be positive")
	}
	if c.Photos.MaxDimension <= 0 {
		errs = append(errs, "photos.max_dimension must be positive")
	}
	if c.Photos.MaxPixels <= 0 {
		errs = append(errs, "photos.max_pixels must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
