package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/adhocore/gronx"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type Config struct {
	ServerPort      string `yaml:"server_port"`
	FirebaseProject string `yaml:"firebase_project_id"`
	Environment     string `yaml:"environment"`
	StorageBucket   string `yaml:"storage_bucket"`
	StoreDriver     string `yaml:"store_driver"`

	BannerDuration  time.Duration `yaml:"banner_duration"`
	NotificationTTL time.Duration `yaml:"notification_ttl"`
	RetentionCron   string        `yaml:"retention_cron"`
	PrefsPath       string        `yaml:"prefs_path"`

	GifAPIKey  string `yaml:"gif_api_key"`
	GifBaseURL string `yaml:"gif_base_url"`
	GifLimit   int    `yaml:"gif_limit"`

	SendRatePerSec   float64 `yaml:"send_rate_per_sec"`
	SendBurst        int     `yaml:"send_burst"`
	TypingRatePerSec float64 `yaml:"typing_rate_per_sec"`
	TypingBurst      int     `yaml:"typing_burst"`
}

func defaults() *Config {
	return &Config{
		ServerPort:       "8080",
		Environment:      "development",
		StoreDriver:      StoreFirestore,
		BannerDuration:   4 * time.Second,
		NotificationTTL:  7 * 24 * time.Hour,
		RetentionCron:    "0 3 * * *",
		PrefsPath:        "./data/prefs",
		GifBaseURL:       "https://tenor.googleapis.com/v2",
		GifLimit:         20,
		SendRatePerSec:   1,
		SendBurst:        10,
		TypingRatePerSec: 0.5,
		TypingBurst:      30,
	}
}

// Load reads .env, then the optional YAML file named by CONFIG_FILE, then
// environment variables. Environment values win.
func Load() (*Config, error) {
	godotenv.Load()

	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	config.ServerPort = getEnv("SERVER_PORT", config.ServerPort)
	config.FirebaseProject = getEnv("FIREBASE_PROJECT_ID", config.FirebaseProject)
	config.Environment = getEnv("ENVIRONMENT", config.Environment)
	config.StorageBucket = getEnv("STORAGE_BUCKET", config.StorageBucket)
	config.StoreDriver = getEnv("STORE_DRIVER", config.StoreDriver)
	config.BannerDuration = getEnvAsDuration("BANNER_DURATION", config.BannerDuration)
	config.NotificationTTL = getEnvAsDuration("NOTIFICATION_TTL", config.NotificationTTL)
	config.RetentionCron = getEnv("RETENTION_CRON", config.RetentionCron)
	config.PrefsPath = getEnv("PREFS_PATH", config.PrefsPath)
	config.GifAPIKey = getEnv("GIF_API_KEY", config.GifAPIKey)
	config.GifBaseURL = getEnv("GIF_BASE_URL", config.GifBaseURL)
	config.GifLimit = int(getEnvAsInt64("GIF_LIMIT", int64(config.GifLimit)))
	config.SendRatePerSec = getEnvAsFloat("SEND_RATE_PER_SEC", config.SendRatePerSec)
	config.SendBurst = int(getEnvAsInt64("SEND_BURST", int64(config.SendBurst)))
	config.TypingRatePerSec = getEnvAsFloat("TYPING_RATE_PER_SEC", config.TypingRatePerSec)
	config.TypingBurst = int(getEnvAsInt64("TYPING_BURST", int64(config.TypingBurst)))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.StoreDriver != StoreFirestore && c.StoreDriver != StoreMemory {
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.StoreDriver == StoreFirestore && c.FirebaseProject == "" {
		return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the firestore driver")
	}
	if c.BannerDuration <= 0 {
		return fmt.Errorf("config: banner duration must be positive, got %s", c.BannerDuration)
	}
	if c.NotificationTTL <= 0 {
		return fmt.Errorf("config: notification ttl must be positive, got %s", c.NotificationTTL)
	}
	if !gronx.IsValid(c.RetentionCron) {
		return fmt.Errorf("config: invalid retention cron %q", c.RetentionCron)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func loadFile(path string, into *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
