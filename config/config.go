package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jsphweid/improv/constants"
	"github.com/pkg/errors"
)

// Config holds every tunable of the improviser. Separate instances are fully
// independent.
type Config struct {
	// ticks per beat everything is normalized to
	Resolution int `json:"resolution"`

	// rhythmic subdivisions of a whole note allowed as durations
	Subdivisions []int `json:"subdivisions"`

	// numerators skipped when enumerating subdivisions
	ForbiddenNumerators []int `json:"forbiddenNumerators"`

	// maximum share of outgoing weight a reinforced edge may reach
	ReinforcementCeiling float64 `json:"reinforcementCeiling"`

	Order    int `json:"order"`
	MaxOrder int `json:"maxOrder"`

	// weight of the previous value in the chord velocity smoothing
	VelocitySmoothing float64 `json:"velocitySmoothing"`

	// model the distance to the next distinct onset as part of the state
	ChordAware bool `json:"chordAware"`

	// 0 seeds from the clock
	Seed int64 `json:"seed,omitempty"`
}

// Default returns a config with the values the improviser was tuned with
func Default() *Config {
	return &Config{
		Resolution:           480,
		Subdivisions:         []int{16, 24},
		ForbiddenNumerators:  []int{7, 11, 13, 15, 17, 19, 21, 22, 23, 24},
		ReinforcementCeiling: 2.0 / 3.0,
		Order:                2,
		MaxOrder:             4,
		VelocitySmoothing:    0.75,
		ChordAware:           true,
	}
}

// Load reads the config from disk, or returns defaults if not found.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "creating config dir")
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Resolution <= 0 {
		return errors.Errorf("resolution must be positive, got %d", c.Resolution)
	}
	if len(c.Subdivisions) == 0 {
		return errors.New("at least one subdivision is required")
	}
	for _, den := range c.Subdivisions {
		if den <= 0 {
			return errors.Errorf("subdivision must be positive, got %d", den)
		}
	}
	if c.ReinforcementCeiling <= 0 || c.ReinforcementCeiling >= 1 {
		return errors.Errorf("reinforcement ceiling must be in (0, 1), got %v", c.ReinforcementCeiling)
	}
	if c.Order < 1 || c.Order > constants.MaxOrder {
		return errors.Errorf("order must be in [1, %d], got %d", constants.MaxOrder, c.Order)
	}
	if c.MaxOrder < c.Order || c.MaxOrder > constants.MaxOrder {
		return errors.Errorf("max order must be in [%d, %d], got %d", c.Order, constants.MaxOrder, c.MaxOrder)
	}
	if c.VelocitySmoothing < 0 || c.VelocitySmoothing >= 1 {
		return errors.Errorf("velocity smoothing must be in [0, 1), got %v", c.VelocitySmoothing)
	}
	return nil
}
