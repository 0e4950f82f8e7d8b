package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/docker/go-units"

	"github.com/mike10004/containment-sub001/pkg/dockerdriver"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// MultiValidationError holds multiple validation errors
type MultiValidationError struct {
	Errors []error
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d configuration errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap returns the individual errors
func (e *MultiValidationError) Unwrap() []error {
	return e.Errors
}

type validator struct {
	errors []error
}

func (v *validator) addError(field, message string, value any) {
	v.errors = append(v.errors, &ValidationError{Field: field, Message: message, Value: value})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	v := &validator{}

	if c.Docker.LabelPrefix == "" {
		v.addError("docker.label_prefix", "must not be empty", c.Docker.LabelPrefix)
	}
	if c.Docker.StopTimeout < 0 {
		v.addError("docker.stop_timeout", "must not be negative", c.Docker.StopTimeout)
	}
	v.validatePullPolicy("docker.pull_policy", c.Docker.PullPolicy)

	seen := make(map[string]bool)
	for i, f := range c.Fixtures {
		field := fmt.Sprintf("fixtures[%d]", i)
		if f.Name == "" {
			v.addError(field+".name", "is required", f.Name)
		} else if seen[f.Name] {
			v.addError(field+".name", "duplicate fixture name", f.Name)
		}
		seen[f.Name] = true

		if f.Image == "" {
			v.addError(field+".image", "is required", f.Image)
		}
		v.validatePullPolicy(field+".pull_policy", f.PullPolicy)
		if f.StopTimeout < 0 {
			v.addError(field+".stop_timeout", "must not be negative", f.StopTimeout)
		}
		if f.Memory != "" {
			if _, err := units.RAMInBytes(f.Memory); err != nil {
				v.addError(field+".memory", err.Error(), f.Memory)
			}
		}
		if _, err := f.Argv(); err != nil {
			v.addError(field+".command", err.Error(), f.Command)
		}
		for j, fc := range f.Files {
			if fc.Source == "" {
				v.addError(fmt.Sprintf("%s.files[%d].source", field, j), "is required", fc.Source)
			}
			if !path.IsAbs(fc.Target) {
				v.addError(fmt.Sprintf("%s.files[%d].target", field, j), "must be an absolute path", fc.Target)
			}
		}
	}

	if len(v.errors) > 0 {
		return &MultiValidationError{Errors: v.errors}
	}
	return nil
}

func (v *validator) validatePullPolicy(field, policy string) {
	if _, err := dockerdriver.ParsePullPolicy(policy); err != nil {
		v.addError(field, "must be one of missing, always, never", policy)
	}
}
