package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cutscene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Engine.TickRate)
	assert.Equal(t, 64, cfg.Engine.MaxInputsPerTick)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "assets/events.yaml", cfg.Assets.ScriptsFile)
	assert.Equal(t, "intro", cfg.Assets.StartEvent)
	assert.False(t, cfg.Bridge.Enabled)
	assert.Equal(t, time.Second/60, cfg.Engine.TickInterval())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  tick_rate: 30
logging:
  level: debug
  format: json
assets:
  scripts_file: /srv/events.yaml
  start_event: village
  map_width: 12
bridge:
  enabled: true
  address: ":9000"
  allowed_origins: ["http://localhost:3000"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Engine.TickRate)
	assert.Equal(t, 64, cfg.Engine.MaxInputsPerTick, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/srv/events.yaml", cfg.Assets.ScriptsFile)
	assert.Equal(t, "village", cfg.Assets.StartEvent)
	assert.Equal(t, 12, cfg.Assets.MapWidth)
	assert.Equal(t, 6, cfg.Assets.MapHeight)
	assert.True(t, cfg.Bridge.Enabled)
	assert.Equal(t, ":9000", cfg.Bridge.Address)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Bridge.AllowedOrigins)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "engine:\n  tick_rate: 30\n")
	t.Setenv("SIXTEENFIFTY_ENGINE_TICK_RATE", "120")
	t.Setenv("SIXTEENFIFTY_ASSETS_START_EVENT", "epilogue")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Engine.TickRate)
	assert.Equal(t, "epilogue", cfg.Assets.StartEvent)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "engine:\n  tick_rate: 0\nlogging:\n  level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.tick_rate")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Engine:  EngineConfig{TickRate: 60, MaxInputsPerTick: 8},
			Logging: LoggingConfig{Level: "warn", Format: "console"},
			Assets:  AssetsConfig{ScriptsFile: "events.yaml", MapWidth: 1, MapHeight: 1, HexRadius: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"tick rate", func(c *Config) { c.Engine.TickRate = 0 }, "engine.tick_rate"},
		{"tick rate too fast", func(c *Config) { c.Engine.TickRate = 2_000_000_000 }, "engine.tick_rate"},
		{"tick rate ceiling", func(c *Config) { c.Engine.TickRate = MaxTickRate }, ""},
		{"inputs", func(c *Config) { c.Engine.MaxInputsPerTick = 0 }, "max_inputs_per_tick"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"scripts", func(c *Config) { c.Assets.ScriptsFile = "" }, "scripts_file"},
		{"map", func(c *Config) { c.Assets.MapHeight = 0 }, "map size"},
		{"radius", func(c *Config) { c.Assets.HexRadius = 0 }, "hex_radius"},
		{"bridge", func(c *Config) { c.Bridge.Enabled = true }, "bridge.address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
