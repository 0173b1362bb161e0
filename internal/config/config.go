package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultListenAddr     = ":5006"
	defaultDatabaseURL    = "flightreview.db"
	defaultStorageDir     = "./log_files"
	defaultOverviewDir    = "./overview_imgs"
	defaultMaxUploadSize  = "300MB"
	defaultPartSpillLimit = "512KB"
	defaultHTTPProtocol   = "http"
	defaultDomain         = "localhost:5006"
	defaultCookieName     = "flight_review_login"
)

// Config carries all runtime settings, loaded from the environment
// (optionally seeded from a .env file).
type Config struct {
	ListenAddr  string
	DatabaseURL string

	// StorageDir is the managed directory holding one persisted log file
	// per admitted LogRecord.
	StorageDir  string
	OverviewDir string

	// MaxUploadSize bounds the total multipart body size; a client
	// declaring its payload up front via the expected_size argument
	// replaces the limit for that one request.
	MaxUploadSize int64

	// PartSpillLimit is the in-memory threshold past which a multipart
	// part spills to a temp file.
	PartSpillLimit int

	HTTPProtocol string
	Domain       string

	// UploadPasswordHash is a bcrypt hash gating the login endpoint.
	// Empty disables login (and everything behind it).
	UploadPasswordHash string
	SessionSecret      string
	CookieName         string

	// NASIngestDir is the directory scanned by POST /nas_ingest.
	NASIngestDir string
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", defaultListenAddr),
		DatabaseURL:        getEnv("DATABASE_URL", defaultDatabaseURL),
		StorageDir:         getEnv("STORAGE_DIR", defaultStorageDir),
		OverviewDir:        getEnv("OVERVIEW_DIR", defaultOverviewDir),
		HTTPProtocol:       getEnv("HTTP_PROTOCOL", defaultHTTPProtocol),
		Domain:             getEnv("DOMAIN", defaultDomain),
		UploadPasswordHash: strings.TrimSpace(os.Getenv("UPLOAD_PASSWORD_HASH")),
		SessionSecret:      strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		CookieName:         getEnv("COOKIE_NAME", defaultCookieName),
		NASIngestDir:       strings.TrimSpace(os.Getenv("NAS_INGEST_DIR")),
	}

	var err error
	cfg.MaxUploadSize, err = parseSizeEnv("MAX_UPLOAD_SIZE", defaultMaxUploadSize)
	if err != nil {
		return nil, err
	}
	spill, err := parseSizeEnv("PART_SPILL_LIMIT", defaultPartSpillLimit)
	if err != nil {
		return nil, err
	}
	cfg.PartSpillLimit = int(spill)

	return cfg, nil
}

// PlotURL returns the absolute viewer URL for a log identifier.
func (c *Config) PlotURL(logID string) string {
	return c.HTTPProtocol + "://" + c.Domain + "/plot_app?log=" + logID
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseSizeEnv(key, fallback string) (int64, error) {
	raw := getEnv(key, fallback)
	n, err := parseSize(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, raw, err)
	}
	return n, nil
}

// parseSize understands plain byte counts plus KB/MB/GB suffixes.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		mult, s = 1<<30, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		mult, s = 1<<20, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		mult, s = 1<<10, strings.TrimSuffix(s, "KB")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size")
	}
	return n * mult, nil
}
