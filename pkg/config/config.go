package config

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Duration unmarshals either a number of nanoseconds or a string accepted
// by time.ParseDuration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// Config holds the store configuration. StoreURL selects the backend by
// scheme: postgres, postgresql, mysql, sqlserver or sqlite.
type Config struct {
	StoreURL            string
	DefaultArtifactRoot string
	LogLevel            string
	SlowQueryThreshold  Duration
}

func NewConfigFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if len(data) != 0 {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = logrus.InfoLevel.String()
	}

	if c.SlowQueryThreshold.Duration == 0 {
		c.SlowQueryThreshold = Duration{500 * time.Millisecond}
	}
}
