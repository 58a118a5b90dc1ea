package flcoord

import (
	"errors"
	"fmt"
	"os"

	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/selector"
	"github.com/pelletier/go-toml"
)

type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Model       ModelConfig       `toml:"model"`
	Selection   SelectionConfig   `toml:"selection"`
}

// CoordinatorConfig holds the broker credentials of the coordinator.
type CoordinatorConfig struct {
	ClientID  string `toml:"client_id"`
	ClientKey string `toml:"client_key"`
	DomainID  string `toml:"domain_id"`
	ChannelID string `toml:"channel_id"`
}

type ModelConfig struct {
	Name       string            `toml:"name"`
	Parameters []ParameterConfig `toml:"parameters"`
}

type ParameterConfig struct {
	Name  string `toml:"name"`
	Shape []int  `toml:"shape"`
}

type SelectionConfig struct {
	Fraction float64 `toml:"fraction"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultConfig is used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		Selection: SelectionConfig{Fraction: selector.DefaultFraction},
	}
}

func (c *Config) validate() error {
	for i, p := range c.Model.Parameters {
		if p.Name == "" {
			return fmt.Errorf("model parameter %d has no name", i)
		}
		for _, d := range p.Shape {
			if d <= 0 {
				return fmt.Errorf("model parameter %s has a non-positive dimension", p.Name)
			}
		}
	}
	if c.Selection.Fraction < 0 || c.Selection.Fraction > 1 {
		return errors.New("selection fraction must be within [0, 1]")
	}

	return nil
}

// ModelShape returns the configured tensor layout, or the default model when
// none is configured.
func (c *Config) ModelShape() fl.ModelShape {
	if len(c.Model.Parameters) == 0 {
		return fl.DefaultModelShape()
	}

	shape := fl.ModelShape{
		Name:       c.Model.Name,
		Parameters: make([]fl.ParameterSpec, len(c.Model.Parameters)),
	}
	for i, p := range c.Model.Parameters {
		shape.Parameters[i] = fl.ParameterSpec{Name: p.Name, Shape: p.Shape}
	}

	return shape
}

// Fraction returns the configured selection fraction. Zero means unset.
func (c *Config) Fraction() float64 {
	if c.Selection.Fraction == 0 {
		return selector.DefaultFraction
	}

	return c.Selection.Fraction
}
