// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/datetime"
	"github.com/iwvelando/financing-simulator/pkg/validation"
	"github.com/spf13/viper"
)

// DateTimeLayout is the format expected in config files and is also the output
// date format.
const DateTimeLayout = constants.DateTimeLayout

// Configuration holds all configuration for financing-simulator.
type Configuration struct {
	Logging     LoggingConfig `yaml:"logging,omitempty"`
	Output      OutputConfig  `yaml:"output,omitempty"`
	Tax         TaxConfig     `yaml:"tax,omitempty"`
	Simulations []Simulation
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
	Locale string `yaml:"locale,omitempty"` // BCP 47 tag used for number printing
	// Horizon is an optional YYYY-MM month; dated simulations maturing
	// after it produce a warning.
	Horizon string `yaml:"horizon,omitempty"`
}

// TaxConfig overrides the transaction tax policy. Zero values keep the
// default for that field.
type TaxConfig struct {
	DailyRatePercent float64 `yaml:"dailyRatePercent,omitempty"`
	FlatRatePercent  float64 `yaml:"flatRatePercent,omitempty"`
	MaxDays          int     `yaml:"maxDays,omitempty"`
	DaysPerPeriod    int     `yaml:"daysPerPeriod,omitempty"`
}

// Simulation is one financing to simulate.
type Simulation struct {
	Name           string
	Active         bool
	Product        string  // vehicle, property, personal or empty
	Principal      float64 // amount financed before tax
	Rate           float64 // percent per period, see RateBasis
	RateBasis      string  // monthly (default) or annual
	Term           int     // months
	IncludeTax     bool
	Method         string // price (default) or sac
	BalloonPercent float64
	StartDate      string // optional YYYY-MM of the first installment
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r,
// e.g. an uploaded file.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	err := v.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Problems that make a simulation impossible to run are
// reported as errors by ToParameters instead.
func (c *Configuration) ValidateConfiguration() []string {
	return c.ValidateConfigurationAt(time.Now())
}

// ValidateConfigurationAt is ValidateConfiguration with an injectable current
// time for testing.
func (c *Configuration) ValidateConfigurationAt(now time.Time) []string {
	var warnings []string

	seen := make(map[string]bool)
	active := 0
	var dated []validation.SimulationConfig
	for _, sim := range c.Simulations {
		if sim.Name == "" {
			warnings = append(warnings, "simulation without a name")
		} else if seen[sim.Name] {
			warnings = append(warnings, fmt.Sprintf("simulation %s: duplicate name", sim.Name))
		}
		seen[sim.Name] = true

		dated = append(dated, validation.SimulationConfig{
			Name:       sim.Name,
			Active:     sim.Active,
			StartDate:  sim.StartDate,
			RateBasis:  sim.RateBasis,
			TermMonths: sim.Term,
		})

		if !sim.Active {
			continue
		}
		active++

		warnings = append(warnings, sim.productWarnings()...)
		if sim.IncludeTax && sim.BalloonPercent > 0 {
			warnings = append(warnings, fmt.Sprintf("simulation %s: balloon is computed on the amount including tax", sim.Name))
		}
	}

	if len(c.Simulations) > 0 && active == 0 {
		warnings = append(warnings, "no active simulations")
	}

	horizon := c.Output.Horizon
	if horizon != "" {
		if _, err := datetime.ParseMonth(horizon); err != nil {
			warnings = append(warnings, fmt.Sprintf("output horizon ignored: %s", err))
			horizon = ""
		}
	}

	validator := &validation.ConfigValidator{
		CurrentMonth: now.Format(DateTimeLayout),
		Horizon:      horizon,
		Simulations:  dated,
	}
	return append(warnings, validator.ValidateAll()...)
}
