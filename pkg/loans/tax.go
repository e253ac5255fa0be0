package loans

import (
	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/mathutil"
)

// TaxPolicy describes an embedded transaction tax made of a daily accrual,
// capped at MaxDays, plus a flat percentage of the principal.
type TaxPolicy struct {
	DailyRatePercent float64 `json:"dailyRatePercent"`
	FlatRatePercent  float64 `json:"flatRatePercent"`
	MaxDays          int     `json:"maxDays"`
	DaysPerPeriod    int     `json:"daysPerPeriod"`
}

// TaxBreakdown holds the parts of a computed transaction tax.
type TaxBreakdown struct {
	Days  int     `json:"days"`
	Daily float64 `json:"daily"`
	Flat  float64 `json:"flat"`
	Total float64 `json:"total"`
}

// DefaultTaxPolicy returns the built-in policy.
func DefaultTaxPolicy() TaxPolicy {
	return TaxPolicy{
		DailyRatePercent: constants.DefaultDailyTaxRatePercent,
		FlatRatePercent:  constants.DefaultFlatTaxRatePercent,
		MaxDays:          constants.DefaultMaxTaxDays,
		DaysPerPeriod:    constants.DefaultDaysPerPeriod,
	}
}

// WithDefaults fills zero-valued fields from DefaultTaxPolicy.
func (p TaxPolicy) WithDefaults() TaxPolicy {
	defaults := DefaultTaxPolicy()
	if p.DailyRatePercent == 0 {
		p.DailyRatePercent = defaults.DailyRatePercent
	}
	if p.FlatRatePercent == 0 {
		p.FlatRatePercent = defaults.FlatRatePercent
	}
	if p.MaxDays == 0 {
		p.MaxDays = defaults.MaxDays
	}
	if p.DaysPerPeriod == 0 {
		p.DaysPerPeriod = defaults.DaysPerPeriod
	}
	return p
}

// Breakdown computes the tax on principal financed over termPeriods.
func (p TaxPolicy) Breakdown(principal float64, termPeriods int) TaxBreakdown {
	days := termPeriods * p.DaysPerPeriod
	if days > p.MaxDays {
		days = p.MaxDays
	}
	if days < 0 {
		days = 0
	}

	daily := mathutil.ApplyPercentage(principal, p.DailyRatePercent) * float64(days)
	flat := mathutil.ApplyPercentage(principal, p.FlatRatePercent)
	return TaxBreakdown{
		Days:  days,
		Daily: daily,
		Flat:  flat,
		Total: daily + flat,
	}
}

// Compute returns the total tax on principal financed over termPeriods.
func (p TaxPolicy) Compute(principal float64, termPeriods int) float64 {
	return p.Breakdown(principal, termPeriods).Total
}

// ComputeTransactionTax computes the tax under DefaultTaxPolicy.
func ComputeTransactionTax(principal float64, termPeriods int) float64 {
	return DefaultTaxPolicy().Compute(principal, termPeriods)
}
