package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var Version = "dev"

var (
	Port    string
	EnvMode string

	DSN       string
	JWTSecret string

	// BaseURL is the public URL used to build clip deep links in
	// notifications.
	BaseURL string

	WebhookURL     string
	WebhookEnabled bool

	// Environment-level crop defaults, applied when an upload names no
	// preset.
	CropEnabled     bool
	CropWidth       int
	CropHeight      int
	CropSourceWidth int

	UploadDir    string
	ProcessedDir string
	ThumbnailDir string

	// JobTTL > 0 enables expiry of finished registry entries.
	JobTTL time.Duration
)

const (
	FileSizeLimit    = 8 * 1024 * 1024 * 1024
	DiskSpaceMinGB   = 5
	StagingRetention = 60 * time.Minute
	RateLimitWindow  = 60 * time.Second
	RateLimitMax     = 60
)

func Load() {
	Port = envOrDefault("PORT", "3000")
	EnvMode = envOrDefault("ENV_MODE", "development")

	DSN = os.Getenv("DB_DSN")
	if DSN == "" {
		log.Fatal("DB_DSN is required")
	}

	JWTSecret = os.Getenv("JWT_SECRET")
	if JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	BaseURL = envOrDefault("BASE_URL", "http://localhost:"+Port)

	WebhookURL = os.Getenv("WEBHOOK_URL")
	WebhookEnabled = WebhookURL != ""
	if !WebhookEnabled {
		log.Println("[WARN] WEBHOOK_URL not set, completion notifications disabled")
	}

	CropEnabled = os.Getenv("CROP_ENABLED") == "true"
	CropWidth = intEnvOrDefault("CROP_WIDTH", 1920)
	CropHeight = intEnvOrDefault("CROP_HEIGHT", 1080)
	CropSourceWidth = intEnvOrDefault("CROP_SOURCE_WIDTH", 1920)

	dataDir := envOrDefault("DATA_DIR", ".")
	UploadDir = envOrDefault("UPLOAD_DIR", filepath.Join(dataDir, "uploads"))
	ProcessedDir = envOrDefault("PROCESSED_DIR", filepath.Join(dataDir, "processed"))
	ThumbnailDir = envOrDefault("THUMBNAIL_DIR", filepath.Join(dataDir, "thumbnails"))

	ttlHours := intEnvOrDefault("JOB_TTL_HOURS", 0)
	JobTTL = time.Duration(ttlHours) * time.Hour
}

func Dirs() []string {
	return []string{UploadDir, ProcessedDir, ThumbnailDir}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnvOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
