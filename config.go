package pitwall

import (
	"os"

	"gopkg.in/yaml.v2"

	"justapengu.in/pitwall/internal/strategy"
)

type Config struct {
	HTTP    HTTPConfig    `json:"http" yaml:"http"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Planner PlannerConfig `json:"planner" yaml:"planner"`
}

type HTTPConfig struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	Port     uint16 `json:"port" yaml:"port"`
}

type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// PlannerConfig supplies the defaults applied to planning requests that
// leave the corresponding fields unset.
type PlannerConfig struct {
	PitLoss           float64 `json:"pit_loss" yaml:"pit_loss"`
	MinStintLength    int     `json:"min_stint_length" yaml:"min_stint_length"`
	MaxStops          int     `json:"max_stops" yaml:"max_stops"`
	RequiredCompounds int     `json:"required_compounds" yaml:"required_compounds"`
	TopK              int     `json:"top_k" yaml:"top_k"`
	Horizon           int     `json:"horizon" yaml:"horizon"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port: 8772,
		},
		Store: StoreConfig{
			Path: "./pitwall.db",
		},
		Planner: PlannerConfig{
			PitLoss:           20.0,
			MinStintLength:    5,
			MaxStops:          2,
			RequiredCompounds: 2,
			TopK:              strategy.DefaultTopK,
			Horizon:           strategy.DefaultHorizon,
		},
	}
}

func ReadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}
