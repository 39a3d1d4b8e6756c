// Package config loads cutscene runner settings from a YAML file, an optional
// .env file and SIXTEENFIFTY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SIXTEENFIFTY_ENGINE_TICK_RATE.
const EnvPrefix = "SIXTEENFIFTY"

// Config holds every setting of the runner.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
	Assets  AssetsConfig  `mapstructure:"assets"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
}

// EngineConfig controls the tick loop.
type EngineConfig struct {
	// TickRate is the number of ticks per second.
	TickRate         int `mapstructure:"tick_rate"`
	MaxInputsPerTick int `mapstructure:"max_inputs_per_tick"`
}

// MaxTickRate is the fastest supported tick rate, in ticks per second.
const MaxTickRate = 1000

// TickInterval is the time between two ticks.
func (e EngineConfig) TickInterval() time.Duration {
	if e.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(e.TickRate)
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AssetsConfig locates the event library and describes the map.
type AssetsConfig struct {
	ScriptsFile string  `mapstructure:"scripts_file"`
	StartEvent  string  `mapstructure:"start_event"`
	MapWidth    int     `mapstructure:"map_width"`
	MapHeight   int     `mapstructure:"map_height"`
	HexRadius   float64 `mapstructure:"hex_radius"`
}

// BridgeConfig controls the websocket bridge to a remote front end.
type BridgeConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.tick_rate", 60)
	v.SetDefault("engine.max_inputs_per_tick", 64)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("assets.scripts_file", "assets/events.yaml")
	v.SetDefault("assets.start_event", "intro")
	v.SetDefault("assets.map_width", 8)
	v.SetDefault("assets.map_height", 6)
	v.SetDefault("assets.hex_radius", 32.0)
	v.SetDefault("bridge.enabled", false)
	v.SetDefault("bridge.address", "localhost:8090")
	v.SetDefault("bridge.allowed_origins", []string{})
}

// Load reads the configuration. A missing path means defaults plus
// environment only; a .env file in the working directory is applied first
// if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.TickRate <= 0 || c.Engine.TickRate > MaxTickRate {
		errs = append(errs, fmt.Errorf("engine.tick_rate must be between 1 and %d, got %d", MaxTickRate, c.Engine.TickRate))
	}
	if c.Engine.MaxInputsPerTick <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_inputs_per_tick must be positive, got %d", c.Engine.MaxInputsPerTick))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not json or console", c.Logging.Format))
	}
	if c.Assets.ScriptsFile == "" {
		errs = append(errs, errors.New("assets.scripts_file is required"))
	}
	if c.Assets.MapWidth <= 0 || c.Assets.MapHeight <= 0 {
		errs = append(errs, fmt.Errorf("map size %dx%d must be positive", c.Assets.MapWidth, c.Assets.MapHeight))
	}
	if c.Assets.HexRadius <= 0 {
		errs = append(errs, fmt.Errorf("assets.hex_radius must be positive, got %v", c.Assets.HexRadius))
	}
	if c.Bridge.Enabled && c.Bridge.Address == "" {
		errs = append(errs, errors.New("bridge.address is required when the bridge is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
