package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		Mode           string   `yaml:"mode"`
		ReadTimeout    string   `yaml:"read_timeout"`
		WriteTimeout   string   `yaml:"write_timeout"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Assessment struct {
		InitialCoins  int     `yaml:"initial_coins"`
		WinMultiplier float64 `yaml:"win_multiplier"`
		TimerSeconds  int     `yaml:"timer_seconds"`
	} `yaml:"assessment"`
	Upload struct {
		MaxFileBytes  int64 `yaml:"max_file_bytes"`
		MaxZipBytes   int64 `yaml:"max_zip_bytes"`
		MaxImageBytes int64 `yaml:"max_image_bytes"`
		ImageWorkers  int   `yaml:"image_workers"`
	} `yaml:"upload"`
	Storage struct {
		Type           string `yaml:"type"`
		MinioEndpoint  string `yaml:"minio_endpoint"`
		MinioAccessKey string `yaml:"minio_access_key"`
		MinioSecretKey string `yaml:"minio_secret_key"`
		MinioBucket    string `yaml:"minio_bucket"`
		MinioUseSSL    bool   `yaml:"minio_use_ssl"`
		PublicBaseURL  string `yaml:"public_base_url"`
	} `yaml:"storage"`
	RateLimit struct {
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate_limit"`
}

// Load reads YAML config from path and fills in defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default is the configuration used when no file values are set.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
	if c.Assessment.InitialCoins == 0 {
		c.Assessment.InitialCoins = 1000
	}
	if c.Assessment.WinMultiplier == 0 {
		c.Assessment.WinMultiplier = 2.0
	}
	if c.Assessment.TimerSeconds == 0 {
		c.Assessment.TimerSeconds = 30
	}
	if c.Upload.MaxFileBytes == 0 {
		c.Upload.MaxFileBytes = 100 << 20
	}
	if c.Upload.MaxZipBytes == 0 {
		c.Upload.MaxZipBytes = 50 << 20
	}
	if c.Upload.MaxImageBytes == 0 {
		c.Upload.MaxImageBytes = 2 << 20
	}
	if c.Upload.ImageWorkers == 0 {
		c.Upload.ImageWorkers = 4
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "inline"
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = 300
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
