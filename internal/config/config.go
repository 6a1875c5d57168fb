package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// API endpoints of one upstream marketplace API
type API struct {
	BaseURL  string `yaml:"baseURL"`
	TokenURL string `yaml:"tokenURL"`
	Accept   string `yaml:"accept"`
}

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Marketplace struct {
		Retailer     API           `yaml:"retailer"`
		Advertiser   API           `yaml:"advertiser"`
		RequestDelay time.Duration `yaml:"requestDelay"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"marketplace"`

	Auth struct {
		// APIKeys maps customer id to its API key
		APIKeys    map[string]string `yaml:"apiKeys"`
		CronSecret string            `yaml:"cronSecret"`
	} `yaml:"auth"`

	RateLimit struct {
		PerMinute int `yaml:"perMinute"`
		Burst     int `yaml:"burst"`
	} `yaml:"rateLimit"`
}

// LoadEnvFile loads a .env file into the process environment. A missing file
// is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the YAML file, applies defaults and environment overrides, then
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is Load without the file read
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "data/sellerpulse.db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Marketplace.Timeout == 0 {
		c.Marketplace.Timeout = 30 * time.Second
	}
	if c.RateLimit.PerMinute == 0 {
		c.RateLimit.PerMinute = 30
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
}

// applyEnv lets secrets live outside the YAML file
func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("DATABASE_DSN", &c.Database.DSN)
	str("DATABASE_PASSWORD", &c.Database.Password)
	str("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	str("CRON_SECRET", &c.Auth.CronSecret)
	str("LOG_LEVEL", &c.Log.Level)
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Name == "") {
			errs = append(errs, fmt.Errorf("database: dsn or host and name required for %s", c.Database.Driver))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be mysql, postgres or sqlite", c.Database.Driver))
	}
	for name, api := range map[string]API{"retailer": c.Marketplace.Retailer, "advertiser": c.Marketplace.Advertiser} {
		if err := validURL(api.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("marketplace.%s.baseURL: %w", name, err))
		}
		if err := validURL(api.TokenURL); err != nil {
			errs = append(errs, fmt.Errorf("marketplace.%s.tokenURL: %w", name, err))
		}
	}
	if c.Marketplace.RequestDelay < 0 {
		errs = append(errs, errors.New("marketplace.requestDelay must not be negative"))
	}
	seen := map[string]string{}
	for customer, key := range c.Auth.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Errorf("auth.apiKeys.%s is empty", customer))
			continue
		}
		if other, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("auth.apiKeys: %s and %s share a key", other, customer))
		}
		seen[key] = customer
	}
	if c.Minio.Endpoint != "" && c.Minio.BucketName == "" {
		errs = append(errs, errors.New("minio.bucketName required when minio.endpoint is set"))
	}
	return errors.Join(errs...)
}

func validURL(raw string) error {
	if raw == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	return nil
}

// DSN for the configured driver; sqlite gets its file path
func (c *Config) DSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case "postgres":
		return c.PostgresDSN()
	case "sqlite":
		return c.Database.Path
	}
	return c.MySQLDSN()
}

// MySQLDSN builds the go-sql-driver DSN
func (c *Config) MySQLDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq keyword DSN
func (c *Config) PostgresDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode)
}
