package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfigFromBytes(t *testing.T) {
	cfg, err := NewConfigFromBytes([]byte(`{
		"StoreURL": "sqlite:///tmp/store.db",
		"LogLevel": "debug",
		"SlowQueryThreshold": "2s"
	}`))
	require.NoError(t, err)
	require.Equal(t, "sqlite:///tmp/store.db", cfg.StoreURL)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 2*time.Second, cfg.SlowQueryThreshold.Duration)
}

func TestNewConfigFromBytesDefaults(t *testing.T) {
	cfg, err := NewConfigFromBytes(nil)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 500*time.Millisecond, cfg.SlowQueryThreshold.Duration)
}

func TestDurationUnmarshal(t *testing.T) {
	scenarios := []struct {
		name      string
		payload   string
		expected  time.Duration
		shouldErr bool
	}{
		{name: "nanoseconds number", payload: "1500000000", expected: 1500 * time.Millisecond},
		{name: "duration string", payload: `"750ms"`, expected: 750 * time.Millisecond},
		{name: "bad string", payload: `"soon"`, shouldErr: true},
		{name: "wrong type", payload: "true", shouldErr: true},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			var d Duration

			err := d.UnmarshalJSON([]byte(scenario.payload))
			if scenario.shouldErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, scenario.expected, d.Duration)
			}
		})
	}
}
