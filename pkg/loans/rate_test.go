package loans

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestNPV(t *testing.T) {
	// 1100 one period out at 10% is worth exactly 1000 today
	if npv := NPV(0.10, 1000, []float64{1100}); math.Abs(npv) > 1e-9 {
		t.Errorf("NPV() = %v, expected 0", npv)
	}

	installment := CalculateInstallment(10000, 2.0, 12)
	flows := make([]float64, 12)
	for i := range flows {
		flows[i] = installment
	}
	if npv := NPV(0.02, 10000, flows); math.Abs(npv) >= 1e-4 {
		t.Errorf("NPV() at the rate used to build the schedule = %v, expected |NPV| < 1e-4", npv)
	}
	if NPV(0.01, 10000, flows) <= 0 || NPV(0.03, 10000, flows) >= 0 {
		t.Error("NPV() should be positive below the true rate and negative above it")
	}
}

func TestSolveEffectiveRateRoundTrip(t *testing.T) {
	rates := []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 15.0, 19.9, 20.0}
	terms := []int{1, 12, 60, 360}

	for _, rate := range rates {
		for _, term := range terms {
			t.Run(fmt.Sprintf("%.1f%%_%d", rate, term), func(t *testing.T) {
				installment := CalculateInstallment(10000, rate, term)

				estimate, err := SolveEffectiveRate(10000, installment, term, 0)
				if err != nil {
					t.Fatalf("SolveEffectiveRate() error = %v", err)
				}
				if !estimate.Converged {
					t.Errorf("SolveEffectiveRate() did not converge: %+v", estimate)
				}
				if estimate.Iterations >= 100 {
					t.Errorf("SolveEffectiveRate() used %d iterations, expected fewer than 100", estimate.Iterations)
				}
				if math.Abs(estimate.RatePercent-rate) > 0.01 {
					t.Errorf("SolveEffectiveRate() = %.6f%%, expected %.6f%%", estimate.RatePercent, rate)
				}
				if math.Abs(estimate.Residual) >= 1e-4 {
					t.Errorf("SolveEffectiveRate() residual = %v, expected |NPV| < 1e-4", estimate.Residual)
				}
			})
		}
	}
}

func TestSolveEffectiveRateWithBalloon(t *testing.T) {
	// 20% balloon one period after a 12-month schedule at 2%
	balloon := 2000.0
	presentValue := balloon / math.Pow(1.02, 13)
	installment := CalculateInstallment(10000-presentValue, 2.0, 12)

	estimate, err := SolveEffectiveRate(10000, installment, 12, balloon)
	if err != nil {
		t.Fatalf("SolveEffectiveRate() error = %v", err)
	}
	if !estimate.Converged || math.Abs(estimate.RatePercent-2.0) > 0.01 {
		t.Errorf("SolveEffectiveRate() = %+v, expected a converged 2%%", estimate)
	}
}

func TestSolveEffectiveRateOutsideBracket(t *testing.T) {
	tests := []struct {
		name         string
		installment  float64
		expectedRate float64
	}{
		{
			name:         "Zero interest sits below the bracket",
			installment:  10000.0 / 12,
			expectedRate: 0.1,
		},
		{
			name:         "Usurious stream sits above the bracket",
			installment:  CalculateInstallment(10000, 30, 12),
			expectedRate: 20.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estimate, err := SolveEffectiveRate(10000, tt.installment, 12, 0)
			if err != nil {
				t.Fatalf("SolveEffectiveRate() error = %v", err)
			}
			if estimate.Converged {
				t.Errorf("SolveEffectiveRate() should report non-convergence, got %+v", estimate)
			}
			if math.Abs(estimate.RatePercent-tt.expectedRate) > 1e-9 {
				t.Errorf("SolveEffectiveRate() = %v%%, expected the bracket bound %v%%", estimate.RatePercent, tt.expectedRate)
			}
			if estimate.Iterations != 0 {
				t.Errorf("SolveEffectiveRate() iterations = %d, expected 0", estimate.Iterations)
			}
		})
	}
}

func TestSolveEffectiveRateBudgetExhausted(t *testing.T) {
	solver := DefaultRateSolver()
	solver.MaxIterations = 3

	installment := CalculateInstallment(10000, 2.0, 12)
	estimate, err := solver.Solve(10000, installment, 12, 0)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if estimate.Converged {
		t.Errorf("Solve() with 3 iterations should not converge, got %+v", estimate)
	}
	if estimate.Iterations != 3 {
		t.Errorf("Solve() iterations = %d, expected 3", estimate.Iterations)
	}
	if estimate.RatePercent <= 0.1 || estimate.RatePercent >= 20 {
		t.Errorf("Solve() best estimate %v%% should be inside the bracket", estimate.RatePercent)
	}
}

func TestSolveCashFlowsDegenerate(t *testing.T) {
	tests := []struct {
		name      string
		disbursed float64
		flows     []float64
	}{
		{"Zero payment stream", 1000, []float64{0, 0, 0}},
		{"No payments", 1000, nil},
		{"Negative payment", 1000, []float64{600, -100, 600}},
		{"Zero disbursed", 0, []float64{100}},
		{"NaN payment", 1000, []float64{math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultRateSolver().SolveCashFlows(tt.disbursed, tt.flows)
			if !errors.Is(err, ErrDegenerateCashFlow) {
				t.Errorf("SolveCashFlows() error = %v, expected ErrDegenerateCashFlow", err)
			}
		})
	}

	if _, err := SolveEffectiveRate(1000, 100, 0, 0); !errors.Is(err, ErrDegenerateCashFlow) {
		t.Errorf("SolveEffectiveRate() with zero term error = %v, expected ErrDegenerateCashFlow", err)
	}
}

func TestSolveCashFlowsDecreasingStream(t *testing.T) {
	schedule, err := GenerateSchedule(10000, 2.0, 12, ConstantAmortization)
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	estimate, err := DefaultRateSolver().SolveCashFlows(10000, Payments(schedule))
	if err != nil {
		t.Fatalf("SolveCashFlows() error = %v", err)
	}
	if !estimate.Converged || math.Abs(estimate.RatePercent-2.0) > 0.01 {
		t.Errorf("SolveCashFlows() = %+v, expected a converged 2%%", estimate)
	}
}
