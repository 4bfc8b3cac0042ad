package types

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// healthCheckDoc mirrors HealthCheck with string durations so probe timings
// can be written as "2s" or "500ms" in configuration files.
type healthCheckDoc struct {
	Command     string `yaml:"command"`
	Interval    string `yaml:"interval,omitempty"`
	Retries     int    `yaml:"retries,omitempty"`
	StartPeriod string `yaml:"start_period,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *HealthCheck) UnmarshalYAML(value *yaml.Node) error {
	var doc healthCheckDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}

	h.Command = doc.Command
	h.Retries = doc.Retries

	var err error
	if h.Interval, err = parseDuration("interval", doc.Interval); err != nil {
		return err
	}
	if h.StartPeriod, err = parseDuration("start_period", doc.StartPeriod); err != nil {
		return err
	}

	return nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return d, nil
}
