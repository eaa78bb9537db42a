// Package config loads knoldeck's settings from defaults, an optional YAML
// file, KNOLDECK_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/sm2"
)

// EnvPrefix is the prefix of environment variables read by Load. A double
// underscore separates nested keys: KNOLDECK_LOG__LEVEL sets log.level.
const EnvPrefix = "KNOLDECK_"

// Config holds all application configuration.
type Config struct {
	Collection string          `koanf:"collection" validate:"required"`
	DB         string          `koanf:"db" validate:"required"`
	Log        LogConfig       `koanf:"log"`
	HTTP       HTTPConfig      `koanf:"http"`
	Sync       SyncConfig      `koanf:"sync"`
	Scheduler  SchedulerConfig `koanf:"scheduler"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

type SyncConfig struct {
	// Remote is a git URL the collection is cloned from and pulled on sync.
	Remote string `koanf:"remote"`
}

// SchedulerConfig mirrors sm2.Params. Intervals are in days.
type SchedulerConfig struct {
	EasyInterval       float64         `koanf:"easy_interval"`
	EasyBonus          float64         `koanf:"easy_bonus"`
	GraduationInterval float64         `koanf:"graduation_interval"`
	NewSteps           []time.Duration `koanf:"new_steps"`
	RelearningSteps    []time.Duration `koanf:"relearning_steps"`
	HardStep           time.Duration   `koanf:"hard_step"`
	MinimumInterval    float64         `koanf:"minimum_interval"`
	MaximumInterval    float64         `koanf:"maximum_interval"`
	MinimumEase        float64         `koanf:"minimum_ease"`
	DefaultEase        float64         `koanf:"default_ease"`
	HardMultiplier     float64         `koanf:"hard_multiplier"`
	LapseMultiplier    float64         `koanf:"lapse_multiplier"`
	EasyEaseBonus      float64         `koanf:"easy_ease_bonus"`
	HardEasePenalty    float64         `koanf:"hard_ease_penalty"`
	LapseEasePenalty   float64         `koanf:"lapse_ease_penalty"`
}

// Params converts the section into scheduler parameters.
func (s SchedulerConfig) Params() sm2.Params {
	return sm2.Params{
		EasyInterval:       s.EasyInterval,
		EasyBonus:          s.EasyBonus,
		GraduationInterval: s.GraduationInterval,
		NewSteps:           s.NewSteps,
		RelearningSteps:    s.RelearningSteps,
		HardStep:           s.HardStep,
		MinimumInterval:    s.MinimumInterval,
		MaximumInterval:    s.MaximumInterval,
		MinimumEase:        s.MinimumEase,
		DefaultEase:        s.DefaultEase,
		HardMultiplier:     s.HardMultiplier,
		LapseMultiplier:    s.LapseMultiplier,
		EasyEaseBonus:      s.EasyEaseBonus,
		HardEasePenalty:    s.HardEasePenalty,
		LapseEasePenalty:   s.LapseEasePenalty,
	}
}

// Validate checks every section, including the scheduler parameters.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := c.Scheduler.Params().Validate(); err != nil {
		return fmt.Errorf("config validation failed: scheduler: %w", err)
	}
	return nil
}

// Defaults returns the built-in settings as koanf keys.
func Defaults() map[string]any {
	p := sm2.DefaultParams()
	return map[string]any{
		"collection":                    "cards",
		"db":                            "knoldeck.db",
		"log.level":                     "info",
		"log.format":                    "text",
		"http.addr":                     "127.0.0.1:8080",
		"sync.remote":                   "",
		"scheduler.easy_interval":       p.EasyInterval,
		"scheduler.easy_bonus":          p.EasyBonus,
		"scheduler.graduation_interval": p.GraduationInterval,
		"scheduler.new_steps":           durationStrings(p.NewSteps),
		"scheduler.relearning_steps":    durationStrings(p.RelearningSteps),
		"scheduler.hard_step":           p.HardStep.String(),
		"scheduler.minimum_interval":    p.MinimumInterval,
		"scheduler.maximum_interval":    p.MaximumInterval,
		"scheduler.minimum_ease":        p.MinimumEase,
		"scheduler.default_ease":        p.DefaultEase,
		"scheduler.hard_multiplier":     p.HardMultiplier,
		"scheduler.lapse_multiplier":    p.LapseMultiplier,
		"scheduler.easy_ease_bonus":     p.EasyEaseBonus,
		"scheduler.hard_ease_penalty":   p.HardEasePenalty,
		"scheduler.lapse_ease_penalty":  p.LapseEasePenalty,
	}
}

// Options tells Load where to look.
type Options struct {
	// File is an optional YAML config file. A missing file is an error only
	// when the path was given explicitly.
	File string
	// EnvFile is a dotenv file loaded into the environment first. Missing is fine.
	EnvFile string
	// Flags are applied last. Only flags that were set on the command line
	// override earlier layers. Flag names map to keys through FlagKeys.
	Flags *pflag.FlagSet
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"collection": "collection",
	"db":         "db",
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "http.addr",
	"remote":     "sync.remote",
}

// Load builds a validated Config.
func Load(opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	k := koanf.New(".")
	for key, val := range Defaults() {
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", opts.File, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagKey), nil); err != nil {
			return Config{}, fmt.Errorf("failed to read flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
}

func flagKey(f *pflag.Flag) (string, any) {
	key, ok := FlagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}

func durationStrings(ds []time.Duration) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}
