package loans

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/mathutil"
	"go.uber.org/zap"
)

// ErrInvalidLoanParameters matches every *InvalidLoanParametersError.
var ErrInvalidLoanParameters = errors.New("invalid loan parameters")

// InvalidLoanParametersError reports the first parameter that failed
// validation.
type InvalidLoanParametersError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidLoanParametersError) Error() string {
	return fmt.Sprintf("invalid loan parameters: %s %s, got %v", e.Field, e.Reason, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidLoanParameters.
func (e *InvalidLoanParametersError) Unwrap() error {
	return ErrInvalidLoanParameters
}

// LoanParameters are the inputs of a simulation. PeriodicRate is a
// percentage per period, e.g. 1.5 for 1.5% per month.
type LoanParameters struct {
	Principal      float64 `json:"principal"`
	PeriodicRate   float64 `json:"periodicRate"`
	TermPeriods    int     `json:"termPeriods"`
	IncludeTax     bool    `json:"includeTax"`
	Method         Method  `json:"method"`
	BalloonPercent float64 `json:"balloonPercent,omitempty"`
}

// Validate checks the preconditions of Simulate.
func (p LoanParameters) Validate() error {
	switch {
	case !mathutil.IsFinite(p.Principal) || p.Principal <= 0:
		return &InvalidLoanParametersError{Field: "principal", Value: p.Principal, Reason: "must be a positive amount"}
	case !mathutil.IsFinite(p.PeriodicRate) || p.PeriodicRate < 0:
		return &InvalidLoanParametersError{Field: "periodicRate", Value: p.PeriodicRate, Reason: "must be a non-negative percentage"}
	case p.TermPeriods < 1:
		return &InvalidLoanParametersError{Field: "termPeriods", Value: float64(p.TermPeriods), Reason: "must be at least one period"}
	case p.TermPeriods > constants.MaxTermPeriods:
		return &InvalidLoanParametersError{Field: "termPeriods", Value: float64(p.TermPeriods), Reason: fmt.Sprintf("must be at most %d periods", constants.MaxTermPeriods)}
	case !p.Method.Valid():
		return &InvalidLoanParametersError{Field: "method", Value: float64(p.Method), Reason: "must be price or sac"}
	case !mathutil.IsFinite(p.BalloonPercent) || p.BalloonPercent < 0 || p.BalloonPercent >= constants.PercentageMultiplier:
		return &InvalidLoanParametersError{Field: "balloonPercent", Value: p.BalloonPercent, Reason: "must be in [0, 100)"}
	case p.BalloonPercent > 0 && p.Method != FixedInstallment:
		return &InvalidLoanParametersError{Field: "balloonPercent", Value: p.BalloonPercent, Reason: "is only supported with fixed installments"}
	}
	return nil
}

// SimulationResult is the outcome of a simulation.
type SimulationResult struct {
	// InstallmentValue is the regular payment; for constant amortization it
	// is the first, largest, installment.
	InstallmentValue float64 `json:"installmentValue"`
	TotalPaid        float64 `json:"totalPaid"`
	TotalInterest    float64 `json:"totalInterest"`
	// FinancedAmount is the principal plus any embedded tax.
	FinancedAmount float64  `json:"financedAmount"`
	BalloonPayment float64  `json:"balloonPayment,omitempty"`
	TaxAmount      *float64 `json:"taxAmount,omitempty"`
	// EffectiveRate is measured against the untaxed principal.
	EffectiveRate       *RateEstimate `json:"effectiveRate,omitempty"`
	EffectiveAnnualRate *float64      `json:"effectiveAnnualRate,omitempty"`
	Schedule            []ScheduleRow `json:"schedule"`
}

// Simulator composes the tax policy, the schedule generator and the rate
// solver.
type Simulator struct {
	logger    *zap.Logger
	generator *ScheduleGenerator
	tax       TaxPolicy
	solver    RateSolver
}

// NewSimulator creates a simulator using the given tax policy; zero fields
// of the policy fall back to DefaultTaxPolicy.
func NewSimulator(logger *zap.Logger, tax TaxPolicy) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		logger:    logger,
		generator: NewScheduleGenerator(logger),
		tax:       tax.WithDefaults(),
		solver:    DefaultRateSolver(),
	}
}

// TaxPolicy returns the policy applied when IncludeTax is set.
func (s *Simulator) TaxPolicy() TaxPolicy {
	return s.tax
}

// Simulate runs a simulation with the default tax policy and no logging.
func Simulate(params LoanParameters) (SimulationResult, error) {
	return NewSimulator(nil, DefaultTaxPolicy()).Simulate(params)
}

// Simulate validates params, folds in the tax, builds the schedule and
// solves for the effective rate.
func (s *Simulator) Simulate(params LoanParameters) (SimulationResult, error) {
	if err := params.Validate(); err != nil {
		return SimulationResult{}, err
	}

	var result SimulationResult
	financed := params.Principal
	if params.IncludeTax {
		tax := s.tax.Compute(params.Principal, params.TermPeriods)
		financed += tax
		result.TaxAmount = &tax
	}
	result.FinancedAmount = financed

	var (
		schedule []ScheduleRow
		err      error
	)
	if params.BalloonPercent > 0 {
		schedule, result.BalloonPayment, err = s.balloonSchedule(financed, params)
	} else {
		schedule, err = s.generator.GenerateSchedule(financed, params.PeriodicRate, params.TermPeriods, params.Method)
	}
	if err != nil {
		return SimulationResult{}, err
	}

	result.Schedule = schedule
	result.InstallmentValue = schedule[1].Payment
	result.TotalPaid = TotalPaid(schedule)
	result.TotalInterest = result.TotalPaid - financed
	if !mathutil.IsFinite(result.InstallmentValue) || !mathutil.IsFinite(result.TotalPaid) {
		return SimulationResult{}, &InvalidLoanParametersError{Field: "periodicRate", Value: params.PeriodicRate, Reason: "overflows the schedule"}
	}

	var rate RateEstimate
	if params.Method == FixedInstallment {
		rate, err = s.solver.Solve(params.Principal, result.InstallmentValue, params.TermPeriods, result.BalloonPayment)
	} else {
		rate, err = s.solver.SolveCashFlows(params.Principal, Payments(schedule))
	}
	if err != nil {
		s.logger.Warn("effective rate unavailable",
			zap.String("op", "loans.Simulate"),
			zap.Error(err),
		)
		return result, nil
	}
	if !rate.Converged {
		s.logger.Warn("effective rate did not converge",
			zap.String("op", "loans.Simulate"),
			zap.Float64("ratePercent", rate.RatePercent),
			zap.Float64("residual", rate.Residual),
			zap.Int("iterations", rate.Iterations),
		)
	}
	annual := mathutil.CompoundRate(rate.RatePercent, constants.MonthsPerYear)
	result.EffectiveRate = &rate
	result.EffectiveAnnualRate = &annual

	s.logger.Debug("simulated loan",
		zap.String("op", "loans.Simulate"),
		zap.Stringer("method", params.Method),
		zap.Float64("principal", params.Principal),
		zap.Int("termPeriods", params.TermPeriods),
		zap.Float64("installment", result.InstallmentValue),
		zap.Float64("totalPaid", result.TotalPaid),
		zap.Float64("effectiveRate", rate.RatePercent),
	)

	return result, nil
}

// balloonSchedule amortizes financed minus the present value of the balloon
// over the regular term and carries the deferred balance, with its accrued
// interest, through every row until the balloon settles it at period n+1.
func (s *Simulator) balloonSchedule(financed float64, params LoanParameters) ([]ScheduleRow, float64, error) {
	n := params.TermPeriods
	balloon := mathutil.ApplyPercentage(financed, params.BalloonPercent)
	presentValue := balloon / math.Pow(1+params.PeriodicRate/constants.PercentageMultiplier, float64(n+1))
	amortized := financed - presentValue
	if amortized <= 0 {
		return nil, 0, &InvalidLoanParametersError{Field: "balloonPercent", Value: params.BalloonPercent, Reason: "leaves nothing to amortize"}
	}

	regular, err := s.generator.GenerateSchedule(amortized, params.PeriodicRate, n, params.Method)
	if err != nil {
		return nil, 0, err
	}

	schedule := make([]ScheduleRow, 0, n+2)
	deferred := presentValue
	for _, row := range regular {
		if row.PeriodIndex > 0 {
			accrued := CalculateInterest(deferred, params.PeriodicRate)
			deferred += accrued
			row.Interest += accrued
			row.Principal -= accrued
		}
		row.RemainingBalance += deferred
		schedule = append(schedule, row)
	}

	interest := CalculateInterest(deferred, params.PeriodicRate)
	schedule = append(schedule, ScheduleRow{
		PeriodIndex:      n + 1,
		Payment:          balloon,
		Principal:        balloon - interest,
		Interest:         interest,
		RemainingBalance: 0,
	})

	s.logger.Debug("deferred balloon",
		zap.String("op", "loans.balloonSchedule"),
		zap.Float64("balloon", balloon),
		zap.Int("period", n+1),
		zap.Float64("presentValue", presentValue),
		zap.Float64("amortized", amortized),
	)

	return schedule, balloon, nil
}
