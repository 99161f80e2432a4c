// Package config resolves eling's settings: viper defaults, config.yaml,
// .env files and the on-disk locations derived from them.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ExpandPath resolves a leading ~ to the home directory and then expands
// $VAR references. A ~ elsewhere in the path is left alone.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return ""
	case path == "~", strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}

// DatabasePath returns the expanded ledger file location from v, falling
// back to DefaultDatabasePath when database.path is unset.
func DatabasePath(v *viper.Viper) string {
	path := v.GetString(KeyDatabasePath)
	if path == "" {
		path = DefaultDatabasePath
	}
	return ExpandPath(path)
}

// ConfigFilePath is where config.yaml lives when --config is not given.
func ConfigFilePath() string {
	return filepath.Join(ExpandPath(DefaultConfigDir), "config.yaml")
}
