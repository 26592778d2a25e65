// Package config loads runtime settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/spyhole/internal/constants"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"` // HMAC key for session cookies, random per process if empty
	MaxUploadSize int64  `yaml:"max_upload_size"`
	// AllowedOrigins receive CORS headers in addition to localhost
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StorageConfig struct {
	KnownDir  string `yaml:"known_dir"`  // one reference photo per enrolled identity
	UploadDir string `yaml:"upload_dir"` // probe images from the capture device
}

type RecognitionConfig struct {
	Threshold    float64 `yaml:"threshold"`      // accept when distance < threshold
	Backend      string  `yaml:"backend"`        // "service" or "dlib"
	EmbeddingURL string  `yaml:"embedding_url"`  // defaults to http://localhost:8000
	ModelsDir    string  `yaml:"models_dir"`     // dlib model files
	Workers      int     `yaml:"workers"`        // concurrent extractions
	MaxImageSize int     `yaml:"max_image_size"` // longest side before upload to the embedding service
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`            // postgres:// URL or SQLite file path
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when neither a file nor the environment set a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          5000,
			MaxUploadSize: constants.MaxUploadSize,
		},
		Storage: StorageConfig{
			KnownDir:  constants.DefaultKnownDir,
			UploadDir: constants.DefaultUploadDir,
		},
		Recognition: RecognitionConfig{
			Threshold:    constants.DefaultMatchThreshold,
			Backend:      "service",
			Workers:      runtime.NumCPU(),
			MaxImageSize: constants.MaxImageSize,
		},
		Database: DatabaseConfig{
			URL:          constants.DefaultDatabasePath,
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// envString returns the environment value for key, or current when unset.
func envString(key, current string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return current
}

// envList reads a comma-separated environment variable, keeping current when unset.
func envList(key string, current []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return current
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the current value if the env var is unset, empty, or invalid.
func envInt(key string, current int) int {
	s := os.Getenv(key)
	if s == "" {
		return current
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return current
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the current value if the env var is unset, empty, or invalid.
func envFloat(key string, current float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return current
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return current
}

// envBool reads an environment variable as a boolean, keeping current when unset or invalid.
func envBool(key string, current bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return current
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return current
}

// Load builds the configuration. Defaults come first, then the YAML file named by
// path (or CONFIG_FILE when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envString("WEB_HOST", c.Server.Host)
	c.Server.Port = envInt("WEB_PORT", c.Server.Port)
	c.Server.SessionSecret = envString("WEB_SESSION_SECRET", c.Server.SessionSecret)
	c.Server.MaxUploadSize = int64(envInt("MAX_UPLOAD_SIZE", int(c.Server.MaxUploadSize)))
	c.Server.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Storage.KnownDir = envString("KNOWN_FACES_DIR", c.Storage.KnownDir)
	c.Storage.UploadDir = envString("UPLOADS_DIR", c.Storage.UploadDir)

	c.Recognition.Threshold = envFloat("MATCH_THRESHOLD", c.Recognition.Threshold)
	c.Recognition.Backend = envString("EXTRACTOR_BACKEND", c.Recognition.Backend)
	c.Recognition.EmbeddingURL = envString("EMBEDDING_URL", c.Recognition.EmbeddingURL)
	c.Recognition.ModelsDir = envString("DLIB_MODELS_DIR", c.Recognition.ModelsDir)
	c.Recognition.Workers = envInt("EXTRACTOR_WORKERS", c.Recognition.Workers)
	c.Recognition.MaxImageSize = envInt("MAX_IMAGE_SIZE", c.Recognition.MaxImageSize)

	c.Database.URL = envString("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.Development = envBool("LOG_DEVELOPMENT", c.Log.Development)
}

// Validate reports settings that would make recognition meaningless.
func (c *Config) Validate() error {
	var errs []error
	if c.Recognition.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("recognition threshold must be positive, got %v", c.Recognition.Threshold))
	}
	switch c.Recognition.Backend {
	case "service", "dlib":
	default:
		errs = append(errs, fmt.Errorf("unknown extractor backend %q", c.Recognition.Backend))
	}
	if c.Recognition.Workers < 1 {
		errs = append(errs, fmt.Errorf("extractor workers must be at least 1, got %d", c.Recognition.Workers))
	}
	if c.Storage.KnownDir == "" {
		errs = append(errs, errors.New("known faces directory must be set"))
	}
	if c.Storage.UploadDir == "" {
		errs = append(errs, errors.New("upload directory must be set"))
	}
	if c.Server.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("max upload size must be positive, got %d", c.Server.MaxUploadSize))
	}
	return errors.Join(errs...)
}

// IsPostgres reports whether the database URL points at PostgreSQL rather than a SQLite file.
func (d *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(d.URL, "postgres://") || strings.HasPrefix(d.URL, "postgresql://")
}
