package config

import "time"

const (
	DefaultLabelPrefix = "com.containment"
	DefaultStopTimeout = 10 * time.Second
	DefaultPullPolicy  = "missing"
	DefaultHost        = "127.0.0.1"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	fileEnabled := true
	return &Config{
		Docker: DockerConfig{
			LabelPrefix: DefaultLabelPrefix,
			StopTimeout: DefaultStopTimeout,
			PullPolicy:  DefaultPullPolicy,
			Host:        DefaultHost,
		},
		Logging: LoggingConfig{
			FileEnabled: &fileEnabled,
			MaxSizeMB:   50,
			MaxAgeDays:  7,
			MaxBackups:  3,
		},
	}
}
