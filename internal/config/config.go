package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppName string `yaml:"app_name"`
	Env     string `yaml:"env"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	DatabasePath string `yaml:"database_path"`

	JWTSecret          string `yaml:"jwt_secret"`
	AccessTokenMinutes int    `yaml:"access_token_minutes"`
	EncryptKey         string `yaml:"encrypt_key"`

	UploadDir   string   `yaml:"upload_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
	Debug       bool     `yaml:"debug"`

	// MaxHistoryMessages bounds one history query per channel.
	MaxHistoryMessages int `yaml:"max_history_messages"`
	// LoginRatePerMinute throttles login attempts per remote address.
	LoginRatePerMinute int `yaml:"login_rate_per_minute"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// Load builds configuration from defaults, then an optional YAML file
// (CONFIG_FILE, falling back to ./config.yaml when present), then
// environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := &Config{
		AppName:            "Court Registry Portal API",
		Env:                "development",
		Host:               "0.0.0.0",
		Port:               8000,
		DatabasePath:       "courtportal.db",
		AccessTokenMinutes: 60 * 24,
		UploadDir:          "uploads",
		Debug:              true,
		MaxHistoryMessages: 1000,
		LoginRatePerMinute: 10,
		CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
	}

	if err := loadFile(cfg); err != nil {
		return nil, err
	}
	loadEnv(cfg)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EncryptKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config) error {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		if _, err := os.Stat("config.yaml"); err != nil {
			return nil
		}
		path = "config.yaml"
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) {
	cfg.AppName = getEnv("APP_NAME", cfg.AppName)
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Host = getEnv("HTTP_HOST", cfg.Host)
	cfg.Port = getEnvAsInt("HTTP_PORT", cfg.Port)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AccessTokenMinutes = getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", cfg.AccessTokenMinutes)
	cfg.EncryptKey = getEnv("ENCRYPTION_KEY", cfg.EncryptKey)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.Debug = getEnvAsBool("DEBUG", cfg.Debug)
	cfg.MaxHistoryMessages = getEnvAsInt("MAX_HISTORY_MESSAGES", cfg.MaxHistoryMessages)
	cfg.LoginRatePerMinute = getEnvAsInt("LOGIN_RATE_PER_MINUTE", cfg.LoginRatePerMinute)
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)

	if cors := os.Getenv("CORS_ORIGINS"); cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	}
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
