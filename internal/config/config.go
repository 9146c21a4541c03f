// Package config resolves pdf-toolbox settings from an optional YAML file,
// a .env file and environment variables. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxFileSize is the default input size limit (200MB)
	DefaultMaxFileSize = int64(200 * 1024 * 1024)

	// DefaultMemoryLimit is the default Go runtime soft memory limit (4GB)
	DefaultMemoryLimit = int64(4 * 1024 * 1024 * 1024)

	EnvConfigPath  = "PDF_TOOLBOX_CONFIG"
	EnvOutputDir   = "PDF_TOOLBOX_OUTPUT_DIR"
	EnvMaxFileSize = "PDF_MAX_FILE_SIZE"
	EnvWorkers     = "PDF_TOOLBOX_WORKERS"
	EnvLanguages   = "PDF_TOOLBOX_OCR_LANGUAGES"
	EnvStrict      = "PDF_TOOLBOX_STRICT_VALIDATION"
	EnvMemoryLimit = "PDF_TOOLBOX_MEMORY_LIMIT"
)

// Config holds process wide defaults. Tool arguments override them per call.
type Config struct {
	// OutputDir is used when a call gives no output_dir; empty means next to the input
	OutputDir string `yaml:"output_dir"`

	// MaxFileSize is the largest accepted input in bytes
	MaxFileSize int64 `yaml:"max_file_size"`

	// Workers is the default page worker count for rasterising tools
	Workers int `yaml:"workers"`

	// OCRLanguages are the default recognition languages
	OCRLanguages []string `yaml:"ocr_languages"`

	// StrictValidation validates inputs with pdfcpu's strict mode before use
	StrictValidation bool `yaml:"strict_validation"`

	// MemoryLimit is the Go runtime soft memory limit in bytes
	MemoryLimit int64 `yaml:"memory_limit"`
}

var (
	global     *Config
	globalErr  error
	globalOnce sync.Once
)

// Get returns the process configuration, loading it on first use. A broken
// config file is reported once and defaults are used in its place.
func Get() (*Config, error) {
	globalOnce.Do(func() {
		global, globalErr = Load()
		if global == nil {
			global = Defaults()
		}
	})
	return global, globalErr
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		MaxFileSize:  DefaultMaxFileSize,
		Workers:      1,
		OCRLanguages: []string{"eng"},
		MemoryLimit:  DefaultMemoryLimit,
	}
}

// Load reads .env from the working directory, then the YAML file, then
// applies environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()
	if err := cfg.loadFile(Path()); err != nil {
		return cfg, err
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Path returns the config file location
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".pdf-toolbox", "config.yaml")
}

// Dir returns the per-user state directory (~/.pdf-toolbox)
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pdf-toolbox"), nil
}

func (c *Config) loadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvMaxFileSize); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil || size <= 0 {
			return fmt.Errorf("%s must be a positive number of bytes, got %q", EnvMaxFileSize, v)
		}
		c.MaxFileSize = size
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", EnvWorkers, v)
		}
		c.Workers = n
	}
	if v := os.Getenv(EnvLanguages); v != "" {
		c.OCRLanguages = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' || r == ' ' })
	}
	if v := os.Getenv(EnvStrict); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean, got %q", EnvStrict, v)
		}
		c.StrictValidation = strict
	}
	if v := os.Getenv(EnvMemoryLimit); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil || limit <= 0 {
			return fmt.Errorf("%s must be a positive number of bytes, got %q", EnvMemoryLimit, v)
		}
		c.MemoryLimit = limit
	}
	return nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.OutputDir != "" && !filepath.IsAbs(c.OutputDir) {
		return fmt.Errorf("output_dir must be an absolute path: %s", c.OutputDir)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.MemoryLimit <= 0 {
		return fmt.Errorf("memory_limit must be positive")
	}
	return nil
}
