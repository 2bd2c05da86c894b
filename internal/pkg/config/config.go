package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	Submit    SubmitConfig    `mapstructure:"submit"`
	Notices   NoticesConfig   `mapstructure:"notices"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	ReadTimeout    int    `mapstructure:"read_timeout"`
	WriteTimeout   int    `mapstructure:"write_timeout"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // file | memory | valkey | postgres | s3
	Key      string         `mapstructure:"key"`
	File     FileConfig     `mapstructure:"file"`
	Database DatabaseConfig `mapstructure:"database"`
	Valkey   ValkeyConfig   `mapstructure:"valkey"`
	S3       S3Config       `mapstructure:"s3"`
}

type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type ValkeyConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

type EventsConfig struct {
	Driver string      `mapstructure:"driver"` // none | nats | kafka
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SubmitConfig struct {
	Delay    time.Duration  `mapstructure:"delay"`
	Temporal TemporalConfig `mapstructure:"temporal"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type NoticesConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, an optional config file and environment variables.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allowed_origins", "http://localhost:3000, http://localhost:8080")
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.key", "phoneLocations")
	v.SetDefault("storage.file.dir", "./data")
	v.SetDefault("storage.database.host", "localhost")
	v.SetDefault("storage.database.port", 5432)
	v.SetDefault("storage.database.user", "phonemap")
	v.SetDefault("storage.database.password", "")
	v.SetDefault("storage.database.dbname", "phonemap")
	v.SetDefault("storage.database.sslmode", "disable")
	v.SetDefault("storage.database.max_conns", 10)
	v.SetDefault("storage.valkey.addr", "localhost:6379")
	v.SetDefault("storage.valkey.prefix", "phonemap:")
	v.SetDefault("storage.s3.endpoint", "localhost:9000")
	v.SetDefault("storage.s3.bucket", "phonemap")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.prefix", "records/")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.nats.url", "nats://localhost:4222")
	v.SetDefault("events.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("events.kafka.topic", "phonemap.records")
	v.SetDefault("submit.delay", time.Second)
	v.SetDefault("submit.temporal.enabled", false)
	v.SetDefault("submit.temporal.host_port", "localhost:7233")
	v.SetDefault("submit.temporal.namespace", "default")
	v.SetDefault("submit.temporal.task_queue", "phonemap-submit")
	v.SetDefault("notices.ttl", 3*time.Second)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PHONEMAP_STORAGE_DRIVER → storage.driver
	v.SetEnvPrefix("PHONEMAP")
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
	if c.Storage.Key == "" {
		errs = append(errs, "storage.key is required")
	}

	switch c.Storage.Driver {
	case "memory":
	case "file":
		if c.Storage.File.Dir == "" {
			errs = append(errs, "storage.file.dir is required for the file driver")
		}
	case "postgres":
		d := c.Storage.Database
		if d.Host == "" {
			errs = append(errs, "storage.database.host is required")
		}
		if d.Port <= 0 || d.Port > 65535 {
			errs = append(errs, fmt.Sprintf("storage.database.port must be 1-65535, got %d", d.Port))
		}
		if d.User == "" {
			errs = append(errs, "storage.database.user is required")
		}
		if d.DBName == "" {
			errs = append(errs, "storage.database.dbname is required")
		}
	case "valkey":
		if c.Storage.Valkey.Addr == "" {
			errs = append(errs, "storage.valkey.addr is required")
		}
	case "s3":
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			errs = append(errs, "storage.s3.endpoint and storage.s3.bucket are required")
		}
		if c.Storage.S3.AccessKey == "" || c.Storage.S3.SecretKey == "" {
			errs = append(errs, "storage.s3.access_key and storage.s3.secret_key are required")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be one of file, memory, valkey, postgres, s3; got %q", c.Storage.Driver))
	}

	switch c.Events.Driver {
	case "none", "":
	case "nats":
		if c.Events.NATS.URL == "" {
			errs = append(errs, "events.nats.url is required")
		}
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			errs = append(errs, "events.kafka.brokers is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("events.driver must be one of none, nats, kafka; got %q", c.Events.Driver))
	}

	if c.Submit.Delay < 0 {
		errs = append(errs, "submit.delay must not be negative")
	}
	if c.Submit.Temporal.Enabled && c.Submit.Temporal.TaskQueue == "" {
		errs = append(errs, "submit.temporal.task_queue is required when temporal is enabled")
	}
	if c.Notices.TTL <= 0 {
		errs = append(errs, "notices.ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
