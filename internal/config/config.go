// Package config reads the EMS_* environment variables into a typed Config.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Address   string
	DataDir   string
	OrgMark   string
	Symbology string

	PhotoTimeout  time.Duration
	PhotoRoot     string
	PhotoFallback bool

	DownloadTTL time.Duration
	// DocumentTime, when set, is stamped on every PDF instead of the current
	// time so identical input yields identical bytes.
	DocumentTime time.Time

	DatabaseURL string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	WorkerConcurrency int
}

const (
	defaultAddress      = ":8080"
	defaultDataDir      = "data"
	defaultOrgMark      = "EMS"
	defaultSymbology    = "CODE128"
	defaultPhotoTimeout = 10 * time.Second
	defaultDownloadTTL  = 15 * time.Minute
	defaultBucket       = "credentials"
	defaultConcurrency  = 2
)

// Load reads configuration from the environment. Invalid values fall back
// to their defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Address:   address(),
		DataDir:   readEnv("EMS_DATA_DIR", defaultDataDir),
		OrgMark:   readEnv("EMS_ORG_MARK", defaultOrgMark),
		Symbology: strings.ToUpper(readEnv("EMS_BARCODE_SYMBOLOGY", defaultSymbology)),

		PhotoTimeout:  parseDuration("EMS_PHOTO_TIMEOUT", defaultPhotoTimeout),
		PhotoRoot:     readEnv("EMS_PHOTO_ROOT", ""),
		PhotoFallback: parseBool("EMS_PHOTO_FALLBACK", false),

		DownloadTTL:  parseDuration("EMS_DOWNLOAD_TTL", defaultDownloadTTL),
		DocumentTime: parseTime("EMS_DOCUMENT_TIME"),

		DatabaseURL: readEnv("EMS_DATABASE_URL", ""),

		S3Endpoint:  readEnv("EMS_S3_ENDPOINT", ""),
		S3AccessKey: readEnv("EMS_S3_ACCESS_KEY", ""),
		S3SecretKey: readEnv("EMS_S3_SECRET_KEY", ""),
		S3Bucket:    readEnv("EMS_S3_BUCKET", defaultBucket),
		S3Region:    readEnv("EMS_S3_REGION", ""),
		S3UseSSL:    parseBool("EMS_S3_USE_SSL", false),

		RedisAddr:     readEnv("EMS_REDIS_ADDR", ""),
		RedisPassword: readEnv("EMS_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("EMS_REDIS_DB", 0),

		WorkerConcurrency: parseInt("EMS_WORKER_CONCURRENCY", defaultConcurrency),
	}
	if cfg.PhotoTimeout <= 0 {
		cfg.PhotoTimeout = defaultPhotoTimeout
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = defaultDownloadTTL
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = defaultConcurrency
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	switch cfg.Symbology {
	case "CODE128", "QR":
	default:
		cfg.Symbology = defaultSymbology
	}
	return cfg, nil
}

// UseS3 reports whether artifacts go to an S3 bucket instead of memory.
func (c *Config) UseS3() bool { return c.S3Endpoint != "" }

// UseQueue reports whether background batch jobs are available.
func (c *Config) UseQueue() bool { return c.RedisAddr != "" }

func address() string {
	if v := readEnv("EMS_ADDRESS", ""); v != "" {
		return v
	}
	if port := readEnv("PORT", ""); port != "" {
		return ":" + port
	}
	return defaultAddress
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

// parseTime reads an RFC 3339 timestamp. Unset or invalid values yield the
// zero time.
func parseTime(key string) time.Time {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
