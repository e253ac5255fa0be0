package loans

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/mathutil"
)

// ErrDegenerateCashFlow is returned when a cash flow has no single root in
// the rate, e.g. a zero payment stream.
var ErrDegenerateCashFlow = errors.New("degenerate cash flow")

// RateEstimate is the outcome of an effective rate search.
type RateEstimate struct {
	// RatePercent is the periodic rate, as a percentage.
	RatePercent float64 `json:"ratePercent"`
	// Converged is false when |NPV| never fell under the tolerance, either
	// because the budget ran out or the root lies outside the bracket.
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
}

// RateSolver searches a rate bracket by bisection. Rates are fractions per
// period.
type RateSolver struct {
	Lower         float64
	Upper         float64
	MaxIterations int
	Tolerance     float64
}

// DefaultRateSolver returns the solver used by Simulate.
func DefaultRateSolver() RateSolver {
	return RateSolver{
		Lower:         constants.SolverLowerRate,
		Upper:         constants.SolverUpperRate,
		MaxIterations: constants.SolverMaxIterations,
		Tolerance:     constants.SolverTolerance,
	}
}

// NPV returns the net present value at rate r of receiving disbursed now and
// paying flows[k-1] at the end of period k.
func NPV(r, disbursed float64, flows []float64) float64 {
	npv := -disbursed
	discount := 1.0
	for _, flow := range flows {
		discount /= 1 + r
		npv += flow * discount
	}
	return npv
}

// SolveEffectiveRate solves for the periodic rate at which termPeriods
// payments of periodicPayment, plus an optional balloonPayment one period
// after the last installment, are worth disbursed today.
func SolveEffectiveRate(disbursed, periodicPayment float64, termPeriods int, balloonPayment float64) (RateEstimate, error) {
	return DefaultRateSolver().Solve(disbursed, periodicPayment, termPeriods, balloonPayment)
}

// Solve is SolveEffectiveRate with this solver's bracket and budget.
func (s RateSolver) Solve(disbursed, periodicPayment float64, termPeriods int, balloonPayment float64) (RateEstimate, error) {
	if termPeriods < 1 {
		return RateEstimate{}, fmt.Errorf("%w: term must be at least one period, got %d", ErrDegenerateCashFlow, termPeriods)
	}
	flows := make([]float64, termPeriods, termPeriods+1)
	for k := range flows {
		flows[k] = periodicPayment
	}
	if balloonPayment > 0 {
		flows = append(flows, balloonPayment)
	}
	return s.SolveCashFlows(disbursed, flows)
}

// SolveCashFlows finds the rate r with NPV(r) == 0 for an arbitrary stream of
// end-of-period payments.
//
// NPV is strictly decreasing in r only when every flow is non-negative and at
// least one is positive, so that is checked up front rather than assumed.
// When the root lies outside the bracket the nearest bound is returned
// unconverged. When the iteration budget runs out the last midpoint is
// returned unconverged.
func (s RateSolver) SolveCashFlows(disbursed float64, flows []float64) (RateEstimate, error) {
	if err := checkCashFlows(disbursed, flows); err != nil {
		return RateEstimate{}, err
	}

	lower, upper := s.Lower, s.Upper
	npvLower := NPV(lower, disbursed, flows)
	npvUpper := NPV(upper, disbursed, flows)

	if math.Abs(npvLower) < s.Tolerance {
		return estimate(lower, npvLower, 0, true), nil
	}
	if math.Abs(npvUpper) < s.Tolerance {
		return estimate(upper, npvUpper, 0, true), nil
	}
	if npvLower < 0 {
		// Cheaper than the lower bound, e.g. a zero-interest loan.
		return estimate(lower, npvLower, 0, false), nil
	}
	if npvUpper > 0 {
		return estimate(upper, npvUpper, 0, false), nil
	}

	var mid, npvMid float64
	iterations := 0
	for iterations < s.MaxIterations {
		mid = lower + (upper-lower)/2
		npvMid = NPV(mid, disbursed, flows)
		iterations++

		if math.Abs(npvMid) < s.Tolerance {
			return estimate(mid, npvMid, iterations, true), nil
		}
		if mid == lower || mid == upper {
			break
		}
		if npvMid > 0 {
			lower = mid
		} else {
			upper = mid
		}
	}

	return estimate(mid, npvMid, iterations, false), nil
}

func checkCashFlows(disbursed float64, flows []float64) error {
	if !mathutil.IsFinite(disbursed) || disbursed <= 0 {
		return fmt.Errorf("%w: disbursed amount must be positive, got %v", ErrDegenerateCashFlow, disbursed)
	}
	if len(flows) == 0 {
		return fmt.Errorf("%w: no payments", ErrDegenerateCashFlow)
	}
	positive := false
	for k, flow := range flows {
		if !mathutil.IsFinite(flow) || flow < 0 {
			return fmt.Errorf("%w: payment %d is %v", ErrDegenerateCashFlow, k+1, flow)
		}
		if flow > 0 {
			positive = true
		}
	}
	if !positive {
		return fmt.Errorf("%w: payment stream is zero", ErrDegenerateCashFlow)
	}
	return nil
}

func estimate(rate, residual float64, iterations int, converged bool) RateEstimate {
	return RateEstimate{
		RatePercent: rate * constants.PercentageMultiplier,
		Converged:   converged,
		Iterations:  iterations,
		Residual:    residual,
	}
}
