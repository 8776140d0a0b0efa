package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	OutputDir  string
	LayoutPath string

	MinimumRequiredResponses int
	MaxBlockNumber           int
	WrapPadding              int

	WatchDir         string
	WatchIntervalSec int

	WriteLog bool
	Verbose  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "mitcircs.db")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LayoutPath: getEnv("LAYOUT_PATH", ""),

		MinimumRequiredResponses: getEnvInt("MIN_REQUIRED_RESPONSES", 4),
		MaxBlockNumber:           getEnvInt("MAX_BLOCK_NUMBER", 100),
		WrapPadding:              getEnvInt("XLSX_WRAP_PADDING", 10),

		WatchDir:         getEnv("WATCH_DIR", filepath.Join(cwd, "data", "inbox")),
		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 60),

		WriteLog: getEnvBool("WRITE_LOG", false),
		Verbose:  getEnvBool("VERBOSE", false),
	}

	if cfg.MinimumRequiredResponses < 1 {
		return Config{}, fmt.Errorf("MIN_REQUIRED_RESPONSES must be at least 1 (got %d)", cfg.MinimumRequiredResponses)
	}
	if cfg.MaxBlockNumber < 2 {
		return Config{}, fmt.Errorf("MAX_BLOCK_NUMBER must be at least 2 (got %d)", cfg.MaxBlockNumber)
	}
	if cfg.WatchIntervalSec < 1 {
		cfg.WatchIntervalSec = 60
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// RunOptions are the choices made for a single extraction run.
type RunOptions struct {
	InputPath string
	OutputDir string
	WriteLog  bool
	Verbose   bool
}

var supportedExtensions = map[string]struct{}{
	".xlsx": {},
	".csv":  {},
	".html": {},
	".htm":  {},
	".eml":  {},
}

func IsSupportedInput(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Validate checks the input file and makes sure the output directory exists.
func (o RunOptions) Validate() error {
	if strings.TrimSpace(o.InputPath) == "" {
		return fmt.Errorf("no input file selected")
	}
	if !IsSupportedInput(o.InputPath) {
		return fmt.Errorf("unsupported input file %q: expected .xlsx, .csv, .html or .eml", filepath.Base(o.InputPath))
	}
	info, err := os.Stat(o.InputPath)
	if err != nil {
		return fmt.Errorf("input file %s: %w", o.InputPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory", o.InputPath)
	}

	if strings.TrimSpace(o.OutputDir) == "" {
		return fmt.Errorf("no output directory selected")
	}
	if err := os.MkdirAll(o.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output directory %s: %w", o.OutputDir, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
