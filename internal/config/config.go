package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GinMode  string `yaml:"gin_mode"`

	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	CacheDriver   string `yaml:"cache_driver"`
	RoleCacheTTL  string `yaml:"role_cache_ttl"`

	SessionSecret   string `yaml:"session_secret"`
	JWTSecret       string `yaml:"jwt_secret"`
	JWTIssuer       string `yaml:"jwt_issuer"`
	JWTAudience     string `yaml:"jwt_audience"`
	AccessTokenTTL  string `yaml:"access_token_ttl"`
	RefreshTokenTTL string `yaml:"refresh_token_ttl"`

	UploadDir     string `yaml:"upload_dir"`
	UploadBaseURL string `yaml:"upload_base_url"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     string `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	SMTPFrom     string `yaml:"smtp_from"`

	OpenAIAPIKey string `yaml:"openai_api_key"`
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	file := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		file, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	return &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", or(file.HTTPAddr, ":8080")),
		GinMode:         getEnv("GIN_MODE", or(file.GinMode, "debug")),
		DBDriver:        getEnv("DB_DRIVER", or(file.DBDriver, "mysql")),
		DBHost:          getEnv("DB_HOST", or(file.DBHost, "localhost")),
		DBPort:          getEnv("DB_PORT", or(file.DBPort, "3306")),
		DBUser:          getEnv("DB_USER", or(file.DBUser, "adminuser")),
		DBPassword:      getEnv("DB_PASSWORD", or(file.DBPassword, "adminpassword")),
		DBName:          getEnv("DB_NAME", or(file.DBName, "employee_admin")),
		RedisHost:       getEnv("REDIS_HOST", or(file.RedisHost, "localhost")),
		RedisPort:       getEnv("REDIS_PORT", or(file.RedisPort, "6379")),
		RedisPassword:   getEnv("REDIS_PASSWORD", file.RedisPassword),
		CacheDriver:     getEnv("CACHE_DRIVER", or(file.CacheDriver, "redis")),
		RoleCacheTTL:    getEnv("ROLE_CACHE_TTL", or(file.RoleCacheTTL, "24h")),
		SessionSecret:   getEnv("SESSION_SECRET", or(file.SessionSecret, "default-secret-key-change-me")),
		JWTSecret:       getEnv("JWT_SECRET", or(file.JWTSecret, "default-jwt-secret-change-me")),
		JWTIssuer:       getEnv("JWT_ISSUER", or(file.JWTIssuer, "employee-admin-api")),
		JWTAudience:     getEnv("JWT_AUDIENCE", or(file.JWTAudience, "employee-admin-clients")),
		AccessTokenTTL:  getEnv("ACCESS_TOKEN_TTL", or(file.AccessTokenTTL, "15m")),
		RefreshTokenTTL: getEnv("REFRESH_TOKEN_TTL", or(file.RefreshTokenTTL, "168h")),
		UploadDir:       getEnv("UPLOAD_DIR", or(file.UploadDir, "./uploads")),
		UploadBaseURL:   getEnv("UPLOAD_BASE_URL", or(file.UploadBaseURL, "/uploads")),
		SMTPHost:        getEnv("SMTP_HOST", file.SMTPHost),
		SMTPPort:        getEnv("SMTP_PORT", or(file.SMTPPort, "587")),
		SMTPUser:        getEnv("SMTP_USER", file.SMTPUser),
		SMTPPassword:    getEnv("SMTP_PASSWORD", file.SMTPPassword),
		SMTPFrom:        getEnv("SMTP_FROM", or(file.SMTPFrom, "no-reply@employee-admin.local")),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", file.OpenAIAPIKey),
	}, nil
}

// LoadFile reads a YAML configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// RoleCacheDuration parses RoleCacheTTL; zero means entries never expire.
func (c *Config) RoleCacheDuration() (time.Duration, error) {
	return parseDuration("ROLE_CACHE_TTL", c.RoleCacheTTL)
}

func (c *Config) AccessTokenDuration() (time.Duration, error) {
	return parseDuration("ACCESS_TOKEN_TTL", c.AccessTokenTTL)
}

func (c *Config) RefreshTokenDuration() (time.Duration, error) {
	return parseDuration("REFRESH_TOKEN_TTL", c.RefreshTokenTTL)
}

// SMTPEnabled reports whether outgoing mail is configured
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func parseDuration(key, raw string) (time.Duration, error) {
	if raw == "" || raw == "0" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func or(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
