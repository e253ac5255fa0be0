package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/loans"
	"github.com/iwvelando/financing-simulator/pkg/mathutil"
	"github.com/iwvelando/financing-simulator/pkg/validation"
)

// MonthlyRate returns the configured rate as a monthly percentage, converting
// an annual effective rate when RateBasis is annual.
func (sim Simulation) MonthlyRate() (float64, error) {
	if err := validation.ValidateRateBasis(sim.RateBasis); err != nil {
		return 0, err
	}
	if strings.EqualFold(strings.TrimSpace(sim.RateBasis), constants.RateBasisAnnual) {
		return mathutil.CompoundRate(sim.Rate, 1.0/constants.MonthsPerYear), nil
	}
	return sim.Rate, nil
}

// ToParameters converts a simulation entry into engine parameters. The
// returned notes describe adjustments made to fit the product bounds.
func (sim Simulation) ToParameters() (loans.LoanParameters, []string, error) {
	method, err := loans.ParseMethod(sim.Method)
	if err != nil {
		return loans.LoanParameters{}, nil, fmt.Errorf("simulation %s: %w", sim.Name, err)
	}

	rate, err := sim.MonthlyRate()
	if err != nil {
		return loans.LoanParameters{}, nil, fmt.Errorf("simulation %s: %w", sim.Name, err)
	}

	principal, term := sim.Principal, sim.Term
	var notes []string
	if sim.Product != "" {
		product, ok := LookupProduct(sim.Product)
		if !ok {
			return loans.LoanParameters{}, nil, fmt.Errorf("simulation %s: unknown product %q, expected one of %s",
				sim.Name, sim.Product, strings.Join(ProductNames(), ", "))
		}
		principal, rate, term, notes = product.Clamp(principal, rate, term)
	}

	return loans.LoanParameters{
		Principal:      principal,
		PeriodicRate:   rate,
		TermPeriods:    term,
		IncludeTax:     sim.IncludeTax,
		Method:         method,
		BalloonPercent: sim.BalloonPercent,
	}, notes, nil
}

// TaxPolicy returns the configured tax policy; unset fields keep their
// defaults.
func (c TaxConfig) TaxPolicy() loans.TaxPolicy {
	return loans.TaxPolicy{
		DailyRatePercent: c.DailyRatePercent,
		FlatRatePercent:  c.FlatRatePercent,
		MaxDays:          c.MaxDays,
		DaysPerPeriod:    c.DaysPerPeriod,
	}.WithDefaults()
}

// productWarnings reports clamping that ToParameters will apply.
func (sim Simulation) productWarnings() []string {
	if sim.Product == "" {
		return nil
	}
	_, notes, err := sim.ToParameters()
	if err != nil {
		return []string{err.Error()}
	}
	warnings := make([]string, 0, len(notes))
	for _, note := range notes {
		warnings = append(warnings, fmt.Sprintf("simulation %s: %s", sim.Name, note))
	}
	return warnings
}
