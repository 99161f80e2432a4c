package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/eling/internal/common"
)

// Viper keys.
const (
	KeyDatabasePath           = "database.path"
	KeyLoggingLevel           = "logging.level"
	KeyLoggingFormat          = "logging.format"
	KeyDisplayCurrency        = "display.currency"
	KeyDisplayDateFormat      = "display.date_format"
	KeyCheckpointAuto         = "checkpoint.auto"
	KeyCheckpointMaxAuto      = "checkpoint.max_auto"
	KeyImportDefaultCategory  = "import.default_category"
	DefaultDatabasePath       = "~/.local/share/eling/eling.db"
	DefaultConfigDir          = "~/.config/eling"
	defaultCheckpointMaxAuto  = 5
	defaultImportCategoryName = "Uncategorized"
)

// File is the on-disk shape of config.yaml.
type File struct {
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Display    DisplayConfig    `yaml:"display"`
	Import     ImportConfig     `yaml:"import"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
}

// DatabaseConfig locates the ledger file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DisplayConfig controls how amounts and dates are printed.
type DisplayConfig struct {
	Currency   string `yaml:"currency"`
	DateFormat string `yaml:"date_format"`
}

// ImportConfig controls statement imports.
type ImportConfig struct {
	DefaultCategory string `yaml:"default_category"`
}

// CheckpointConfig controls automatic checkpoints.
type CheckpointConfig struct {
	Auto    bool `yaml:"auto"`
	MaxAuto int  `yaml:"max_auto"`
}

// Default returns the configuration used when nothing is set.
func Default() File {
	return File{
		Database:   DatabaseConfig{Path: DefaultDatabasePath},
		Logging:    LoggingConfig{Level: "info", Format: "console"},
		Display:    DisplayConfig{Currency: "Rp", DateFormat: "2006-01-02"},
		Import:     ImportConfig{DefaultCategory: defaultImportCategoryName},
		Checkpoint: CheckpointConfig{Auto: true, MaxAuto: defaultCheckpointMaxAuto},
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyDatabasePath, d.Database.Path)
	v.SetDefault(KeyLoggingLevel, d.Logging.Level)
	v.SetDefault(KeyLoggingFormat, d.Logging.Format)
	v.SetDefault(KeyDisplayCurrency, d.Display.Currency)
	v.SetDefault(KeyDisplayDateFormat, d.Display.DateFormat)
	v.SetDefault(KeyCheckpointAuto, d.Checkpoint.Auto)
	v.SetDefault(KeyCheckpointMaxAuto, d.Checkpoint.MaxAuto)
	v.SetDefault(KeyImportDefaultCategory, d.Import.DefaultCategory)
}

// FromViper reads the effective configuration out of v.
func FromViper(v *viper.Viper) File {
	return File{
		Database: DatabaseConfig{Path: v.GetString(KeyDatabasePath)},
		Logging: LoggingConfig{
			Level:  v.GetString(KeyLoggingLevel),
			Format: v.GetString(KeyLoggingFormat),
		},
		Display: DisplayConfig{
			Currency:   v.GetString(KeyDisplayCurrency),
			DateFormat: v.GetString(KeyDisplayDateFormat),
		},
		Import: ImportConfig{DefaultCategory: v.GetString(KeyImportDefaultCategory)},
		Checkpoint: CheckpointConfig{
			Auto:    v.GetBool(KeyCheckpointAuto),
			MaxAuto: v.GetInt(KeyCheckpointMaxAuto),
		},
	}
}

// Validate rejects settings the application cannot run with.
func (f File) Validate() error {
	if f.Database.Path == "" {
		return fmt.Errorf("%w: %s is empty", common.ErrMissingConfig, KeyDatabasePath)
	}
	if _, err := common.ParseLevel(f.Logging.Level); err != nil {
		return err
	}
	switch f.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", common.ErrInvalidConfig, f.Logging.Format)
	}
	if f.Checkpoint.MaxAuto < 1 {
		return fmt.Errorf("%w: %s must be at least 1", common.ErrInvalidConfig, KeyCheckpointMaxAuto)
	}
	return nil
}

// ErrConfigExists is returned by WriteFile when it would overwrite a file.
var ErrConfigExists = errors.New("config file already exists")

// WriteFile writes f as YAML to path, creating parent directories. An existing
// file is only replaced when force is set.
func WriteFile(path string, f File, force bool) error {
	path = ExpandPath(path)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ReadFile loads a config.yaml written by WriteFile. Missing keys keep their defaults.
func ReadFile(path string) (File, error) {
	f := Default()
	// #nosec G304 - path is chosen by the user
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return f, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return f, nil
}

// LoadEnv loads environment variables from a .env file. With no path, a
// .env in the working directory is loaded if present.
func LoadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(ExpandPath(path)); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	return nil
}
