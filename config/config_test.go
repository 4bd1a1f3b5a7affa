package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoachCheck/internal/cadence"
)

func TestDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	var c Config
	require.NoError(t, env.Parse(&c))
	require.NoError(t, c.Validate())

	assert.Equal(t, cadence.DefaultWindow(), c.CadenceConfig().DefaultWindow)
	assert.Equal(t, 24*time.Hour, c.CadenceConfig().LateGrace)
	assert.Equal(t, 15*time.Minute, c.MissedSweepInterval)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWTSecret = "" }},
		{name: "bad start day", mutate: func(c *Config) { c.CheckInDefaultStartDay = "someday" }},
		{name: "bad end time", mutate: func(c *Config) { c.CheckInDefaultEndTime = "22:99" }},
		{name: "negative grace", mutate: func(c *Config) { c.CheckInLateGrace = -time.Minute }},
		{name: "unknown timezone", mutate: func(c *Config) { c.CheckInTimezone = "Mars/Olympus" }},
		{name: "zero sweep interval", mutate: func(c *Config) { c.MissedSweepInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			require.NoError(t, env.Parse(&c))
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDisabledDefaultWindow(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CHECKIN_WINDOW_DISABLED", "true")

	var c Config
	require.NoError(t, env.Parse(&c))
	require.NoError(t, c.Validate())
	assert.False(t, c.CadenceConfig().DefaultWindow.Enabled)
}
