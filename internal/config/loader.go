package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the configuration file looked up in the working directory.
	ConfigFileName = "containment.yaml"

	// EnvPrefix prefixes environment overrides, e.g. CONTAINMENT_DOCKER_PULL_POLICY.
	EnvPrefix = "CONTAINMENT"
)

// Load reads containment.yaml from dir if it exists, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}
	return load(dir, path)
}

// LoadFile reads the configuration file at path. The file must exist.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &ConfigNotFoundError{Path: path}
	}
	return load(filepath.Dir(path), path)
}

func load(dir, path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("docker.label_prefix", defaults.Docker.LabelPrefix)
	v.SetDefault("docker.stop_timeout", defaults.Docker.StopTimeout)
	v.SetDefault("docker.pull_policy", defaults.Docker.PullPolicy)
	v.SetDefault("docker.host", defaults.Docker.Host)
	v.SetDefault("logging.debug", defaults.Logging.Debug)
	v.SetDefault("logging.file_enabled", *defaults.Logging.FileEnabled)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if path != "" {
		if err := fixLabelKeyCase(&cfg, path); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	resolveSources(&cfg, dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fixLabelKeyCase re-reads the YAML to restore the original case of label
// keys, which viper lowercases.
func fixLabelKeyCase(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw struct {
		Fixtures []struct {
			Labels map[string]string `yaml:"labels"`
		} `yaml:"fixtures"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i := range cfg.Fixtures {
		if i < len(raw.Fixtures) && len(raw.Fixtures[i].Labels) > 0 {
			cfg.Fixtures[i].Labels = raw.Fixtures[i].Labels
		}
	}
	return nil
}

// resolveSources makes relative file sources relative to dir.
func resolveSources(cfg *Config, dir string) {
	for i := range cfg.Fixtures {
		for j, f := range cfg.Fixtures[i].Files {
			if f.Source != "" && !filepath.IsAbs(f.Source) {
				cfg.Fixtures[i].Files[j].Source = filepath.Join(dir, f.Source)
			}
		}
	}
}

// ConfigNotFoundError is returned when the config file doesn't exist
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

// IsConfigNotFound returns true if the error is a ConfigNotFoundError
func IsConfigNotFound(err error) bool {
	var target *ConfigNotFoundError
	return errors.As(err, &target)
}
