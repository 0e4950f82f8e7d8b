package config

import (
	"os"
	"path/filepath"
)

// LogsDirEnv overrides the directory log files are written to.
const LogsDirEnv = EnvPrefix + "_LOGS_DIR"

// LogsDir returns the directory for CLI log files: $CONTAINMENT_LOGS_DIR if
// set, otherwise containment/logs under the user cache directory.
func LogsDir() (string, error) {
	if dir := os.Getenv(LogsDirEnv); dir != "" {
		return dir, nil
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, "containment", "logs"), nil
}
