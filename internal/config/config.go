package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

//go:embed detection.yaml
var detectionYAML []byte

// Strategy selection modes.
const (
	StrategyAuto      = "auto"
	StrategyEmbedding = "embedding"
	StrategyHistogram = "histogram"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Uploads     UploadsConfig
	Recognition RecognitionConfig
	Embedding   EmbeddingConfig
	Detection   DetectionConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins string // comma separated, empty allows localhost only
}

type DatabaseConfig struct {
	URL          string // PostgreSQL URL or MariaDB DSN
	Driver       string // postgres (default) or mysql
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type UploadsConfig struct {
	Folder            string
	MaxSize           int64    // bytes, defaults to 16MB
	AllowedExtensions []string // lowercase, without dot
}

type RecognitionConfig struct {
	Strategy   string  // auto, embedding or histogram
	Tolerance  float64 // 0 keeps the strategy default
	StorePatch bool    // persist the 100x100 patch with histogram encodings

	// CascadePath is the detector's classifier file: pigo's "facefinder"
	// (https://github.com/esimov/pigo/raw/master/cascade/facefinder) in the
	// default build, a Haar XML file with the opencv tag.
	CascadePath string
}

type EmbeddingConfig struct {
	URL       string        // embedding server, e.g. http://localhost:8000
	ModelsDir string        // dlib models for the in-process extractor
	Timeout   time.Duration // per request, defaults to 30s
}

// DetectionConfig is loaded from the embedded detection.yaml.
type DetectionConfig struct {
	Cascade    []facematch.Pass   `yaml:"cascade"`
	Tolerances map[string]float64 `yaml:"tolerances"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool reads a boolean ("1", "true", "yes"), falling back to defaultVal.
func envBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "":
		return defaultVal
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "."))); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDetection parses the embedded detection.yaml.
func LoadDetection() DetectionConfig {
	var det DetectionConfig
	if err := yaml.Unmarshal(detectionYAML, &det); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded detection.yaml: " + err.Error())
	}
	return det
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 5000),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", DriverPostgres)),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Uploads: UploadsConfig{
			Folder:            envString("UPLOAD_FOLDER", "uploads"),
			MaxSize:           int64(envInt("MAX_CONTENT_LENGTH", 16<<20)),
			AllowedExtensions: envList("ALLOWED_EXTENSIONS", []string{"png", "jpg", "jpeg", "gif"}),
		},
		Recognition: RecognitionConfig{
			Strategy:    strings.ToLower(envString("FACE_RECOGNITION_STRATEGY", StrategyAuto)),
			Tolerance:   envFloat("FACE_RECOGNITION_TOLERANCE", 0),
			CascadePath: envString("FACE_CASCADE_PATH", "models/facefinder"),
			StorePatch:  envBool("FACE_STORE_PATCH", false),
		},
		Embedding: EmbeddingConfig{
			URL:       os.Getenv("EMBEDDING_URL"),
			ModelsDir: os.Getenv("FACE_MODELS_DIR"),
			Timeout:   time.Duration(envInt("EMBEDDING_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Detection: LoadDetection(),
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Recognition.Strategy {
	case StrategyAuto, StrategyEmbedding, StrategyHistogram:
	default:
		return fmt.Errorf("unknown FACE_RECOGNITION_STRATEGY %q", c.Recognition.Strategy)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver)
	}
	for i, p := range c.Detection.Cascade {
		if p.ScaleFactor <= 1 || p.MinSize <= 0 || p.MinNeighbors < 0 {
			return fmt.Errorf("invalid cascade pass %d: %s", i, p)
		}
	}
	return nil
}

// Tolerance returns the match tolerance for the given strategy: the
// FACE_RECOGNITION_TOLERANCE override if set, then detection.yaml, then the
// strategy's built-in default.
func (c *Config) Tolerance(s facematch.Strategy) float64 {
	if c.Recognition.Tolerance > 0 {
		return c.Recognition.Tolerance
	}
	if t, ok := c.Detection.Tolerances[string(s.Variant)]; ok && t > 0 {
		return t
	}
	return s.DefaultTolerance
}

// IsAllowedExtension reports whether ext (with or without dot) is accepted.
func (c *UploadsConfig) IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range c.AllowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}
