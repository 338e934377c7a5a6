package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "CLOTHSTOCK_"

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Web       WebConfig       `yaml:"web"`
	Auth      AuthConfig      `yaml:"auth"`
	Messaging MessagingConfig `yaml:"messaging"`
	Log       LogConfig       `yaml:"log"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	StockTTL time.Duration `yaml:"stock_ttl"`
}

type WebConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	SessionSecret     string `yaml:"session_secret"`
	LowStockThreshold int64  `yaml:"low_stock_threshold"`
}

// AuthConfig controls the admin account created on first boot.
type AuthConfig struct {
	SeedAdminUsername string `yaml:"seed_admin_username"`
	SeedAdminPassword string `yaml:"seed_admin_password"`
}

type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "none", "kafka" or "mqtt"
	Kafka               KafkaConfig   `yaml:"kafka"`
	MQTT                MQTTConfig    `yaml:"mqtt"`
	MovementsTopic      string        `yaml:"movements_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
	OutboxBatchSize     int           `yaml:"outbox_batch_size"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "clothstock.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "clothstock",
				User:     "clothstock",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
			StockTTL: 10 * time.Minute,
		},
		Web: WebConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			SessionSecret:     "change-me-in-production",
			LowStockThreshold: 5,
		},
		Auth: AuthConfig{
			SeedAdminUsername: "admin",
			SeedAdminPassword: "testpass",
		},
		Messaging: MessagingConfig{
			Backend: "none",
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
			},
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "clothstock",
			},
			MovementsTopic:      "clothstock.stock.movements",
			OutboxDrainInterval: 5 * time.Second,
			OutboxBatchSize:     50,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overrides selected keys from CLOTHSTOCK_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}
	getInt := func(key string, dst *int) error {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return &EnvError{Key: EnvPrefix + key, Value: v}
			}
			*dst = n
		}
		return nil
	}

	if v, ok := get("DB_DRIVER"); ok {
		c.Database.Driver = v
	}
	if v, ok := get("SQLITE_PATH"); ok {
		c.Database.SQLite.Path = v
	}
	if v, ok := get("PG_HOST"); ok {
		c.Database.Postgres.Host = v
	}
	if err := getInt("PG_PORT", &c.Database.Postgres.Port); err != nil {
		return err
	}
	if v, ok := get("PG_DATABASE"); ok {
		c.Database.Postgres.Database = v
	}
	if v, ok := get("PG_USER"); ok {
		c.Database.Postgres.User = v
	}
	if v, ok := get("PG_PASSWORD"); ok {
		c.Database.Postgres.Password = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.Redis.Address = v
		c.Redis.Enabled = true
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if err := getInt("WEB_PORT", &c.Web.Port); err != nil {
		return err
	}
	if v, ok := get("SESSION_SECRET"); ok {
		c.Web.SessionSecret = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("MESSAGING_BACKEND"); ok {
		c.Messaging.Backend = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.Messaging.Kafka.Brokers = strings.Split(v, ",")
	}
	return nil
}

// EnvError reports an environment override that could not be parsed.
type EnvError struct {
	Key   string
	Value string
}

func (e *EnvError) Error() string {
	return "config: invalid value " + strconv.Quote(e.Value) + " for " + e.Key
}

// MessagingEnabled reports whether movements are announced on a broker.
func (c *Config) MessagingEnabled() bool {
	switch c.Messaging.Backend {
	case "kafka", "mqtt":
		return true
	}
	return false
}
