// Package config loads containment.yaml: Docker settings, logging, and the
// fixtures the CLI can provision.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/shlex"
)

// Config is the root of containment.yaml.
type Config struct {
	Docker   DockerConfig  `mapstructure:"docker" yaml:"docker"`
	Logging  LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Fixtures []Fixture     `mapstructure:"fixtures" yaml:"fixtures"`
}

// DockerConfig holds engine settings shared by all fixtures.
type DockerConfig struct {
	// LabelPrefix namespaces the labels on managed containers. The managed
	// label is <prefix>.managed=true.
	LabelPrefix string        `mapstructure:"label_prefix" yaml:"label_prefix"`
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
	PullPolicy  string        `mapstructure:"pull_policy" yaml:"pull_policy"`

	// Host is the address reported for published ports.
	Host string `mapstructure:"host" yaml:"host"`
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	Debug       bool  `mapstructure:"debug" yaml:"debug"`
	FileEnabled *bool `mapstructure:"file_enabled" yaml:"file_enabled"`
	MaxSizeMB   int   `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays  int   `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups  int   `mapstructure:"max_backups" yaml:"max_backups"`
}

// Fixture describes one container the CLI can provision.
type Fixture struct {
	Name    string            `mapstructure:"name" yaml:"name"`
	Image   string            `mapstructure:"image" yaml:"image"`
	Command string            `mapstructure:"command" yaml:"command"`
	Env     []string          `mapstructure:"env" yaml:"env"`
	Ports   []string          `mapstructure:"ports" yaml:"ports"`
	Memory  string            `mapstructure:"memory" yaml:"memory"`
	Labels  map[string]string `mapstructure:"labels" yaml:"labels"`
	Files   []FileCopy        `mapstructure:"files" yaml:"files"`

	// PullPolicy and StopTimeout override the docker section when set.
	PullPolicy  string        `mapstructure:"pull_policy" yaml:"pull_policy"`
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
}

// FileCopy copies a host file into the fixture before it starts.
type FileCopy struct {
	Source string      `mapstructure:"source" yaml:"source"`
	Target string      `mapstructure:"target" yaml:"target"`
	Mode   os.FileMode `mapstructure:"mode" yaml:"mode"`
}

// Argv splits Command with shell quoting rules.
func (f *Fixture) Argv() ([]string, error) {
	if f.Command == "" {
		return nil, nil
	}
	argv, err := shlex.Split(f.Command)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: invalid command: %w", f.Name, err)
	}
	return argv, nil
}

// Fixture looks up a fixture by name.
func (c *Config) Fixture(name string) (*Fixture, bool) {
	for i := range c.Fixtures {
		if c.Fixtures[i].Name == name {
			return &c.Fixtures[i], true
		}
	}
	return nil, false
}

// FixtureNames returns fixture names in file order.
func (c *Config) FixtureNames() []string {
	names := make([]string, len(c.Fixtures))
	for i, f := range c.Fixtures {
		names[i] = f.Name
	}
	return names
}
