// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/financing-simulator/pkg/datetime"
)

// ValidateStartDate checks that a simulation's first due date is well formed
// and warns when it is already in the past relative to currentMonth.
func ValidateStartDate(simulationName, startDate, currentMonth string) (string, error) {
	if _, err := datetime.ParseMonth(startDate); err != nil {
		return "", fmt.Errorf("simulation '%s' start date: %w", simulationName, err)
	}

	past, err := datetime.DateBeforeDate(startDate, currentMonth)
	if err != nil {
		return "", err
	}
	if past {
		return fmt.Sprintf("Simulation '%s' starts before the current month (%s < %s)",
			simulationName, startDate, currentMonth), nil
	}

	return "", nil
}

// ValidateMaturity warns when a simulation runs past the horizon month.
func ValidateMaturity(simulationName, startDate, horizon string, termMonths int) (string, error) {
	maturityDate, err := datetime.MaturityDate(startDate, termMonths)
	if err != nil {
		return "", err
	}

	if maturityDate > horizon {
		return fmt.Sprintf("Simulation '%s' matures after %s (%s)", simulationName, horizon, maturityDate), nil
	}

	return "", nil
}

// ConfigValidator checks the dated parts of a configuration.
type ConfigValidator struct {
	// CurrentMonth is the YYYY-MM month start dates are compared against.
	CurrentMonth string
	// Horizon is an optional YYYY-MM month beyond which maturities warn.
	Horizon     string
	Simulations []SimulationConfig
}

// SimulationConfig is the part of a simulation entry the validator needs.
type SimulationConfig struct {
	Name       string
	Active     bool
	StartDate  string
	RateBasis  string
	TermMonths int
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	for _, sim := range cv.Simulations {
		if !sim.Active {
			continue
		}

		if err := ValidateRateBasis(sim.RateBasis); err != nil {
			warnings = append(warnings, fmt.Sprintf("Simulation '%s': %s", sim.Name, err))
		}

		if sim.StartDate == "" {
			continue
		}
		warning, err := ValidateStartDate(sim.Name, sim.StartDate, cv.CurrentMonth)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}

		if cv.Horizon == "" || sim.TermMonths < 1 {
			continue
		}
		warning, err = ValidateMaturity(sim.Name, sim.StartDate, cv.Horizon, sim.TermMonths)
		if err == nil && warning != "" {
			warnings = append(warnings, warning)
		}
	}

	return warnings
}
