// Package config loads and persists the JSON settings file shared with the
// UI layer. The core only reads compute_mode, tier, and is_debug; any other
// keys present in the file (UI-owned, e.g. theme or compact_mode) are
// round-tripped untouched rather than rejected.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	ComputeModeCPU = "cpu"
	ComputeModeGPU = "gpu"

	TierLow     = "low"
	TierMiddle  = "middle"
	TierHigh    = "high"
	TierExtreme = "extreme"
)

// AppSettings is the subset of config.json the core reads.
type AppSettings struct {
	ComputeMode string `mapstructure:"compute_mode" json:"compute_mode"`
	Tier        string `mapstructure:"tier" json:"tier"`
	IsDebug     bool   `mapstructure:"is_debug" json:"is_debug"`
}

func defaults() AppSettings {
	return AppSettings{
		ComputeMode: ComputeModeGPU,
		Tier:        TierMiddle,
		IsDebug:     false,
	}
}

// Store loads config.json from appDataDir via viper, preserving any
// UI-owned keys already present in the file so Save doesn't drop them.
type Store struct {
	v    *viper.Viper
	path string
}

// Load reads appDataDir/config.json, creating it with defaults on first
// run. Unknown keys in an existing file are preserved verbatim in-memory so
// a subsequent Save doesn't erase them.
func Load(appDataDir string) (*Store, error) {
	path := filepath.Join(appDataDir, "config.json")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	def := defaults()
	v.SetDefault("compute_mode", def.ComputeMode)
	v.SetDefault("tier", def.Tier)
	v.SetDefault("is_debug", def.IsDebug)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(appDataDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create app data directory")
		}
		if err := v.WriteConfigAs(path); err != nil {
			return nil, errors.Wrap(err, "write default config")
		}
		return &Store{v: v, path: path}, nil
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config.json")
	}

	return &Store{v: v, path: path}, nil
}

// Settings returns the core-relevant fields of the current config.
func (s *Store) Settings() AppSettings {
	var settings AppSettings
	if err := s.v.Unmarshal(&settings); err != nil {
		return defaults()
	}
	return settings
}

// Save persists compute_mode, tier, and is_debug, leaving every other key
// already present in the file (UI-owned settings) untouched.
func (s *Store) Save(settings AppSettings) error {
	s.v.Set("compute_mode", settings.ComputeMode)
	s.v.Set("tier", settings.Tier)
	s.v.Set("is_debug", settings.IsDebug)
	return errors.Wrap(s.v.WriteConfigAs(s.path), "write config.json")
}

// GPULayers maps a performance tier to the GPU-layer offload count the
// translator passes to the inference child. CPU compute mode always offloads
// zero layers regardless of tier.
func GPULayers(settings AppSettings) int {
	if settings.ComputeMode == ComputeModeCPU {
		return 0
	}
	switch settings.Tier {
	case TierLow:
		return 10
	case TierHigh:
		return 25
	case TierExtreme:
		return 99
	default:
		return 15
	}
}
