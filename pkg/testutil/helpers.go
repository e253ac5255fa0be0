// Package testutil provides common utility functions for testing.
package testutil

import (
	"fmt"

	"github.com/iwvelando/financing-simulator/internal/simulation"
	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/loans"
	"github.com/iwvelando/financing-simulator/pkg/mathutil"
)

// rowTolerance absorbs floating point noise when comparing row components.
const rowTolerance = 1e-6

// FindSimulation finds a simulation outcome by name in the results slice.
// Returns a pointer to the outcome if found, nil otherwise.
func FindSimulation(results []simulation.Outcome, name string) *simulation.Outcome {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// CheckSchedule verifies the invariants every schedule must satisfy: row 0
// is the untouched financed amount, each payment splits exactly into
// principal and interest, balances never increase and end at exactly zero,
// and the principal portions add up to the financed amount.
func CheckSchedule(schedule []loans.ScheduleRow, financed float64) error {
	if len(schedule) < 2 {
		return fmt.Errorf("schedule has %d rows, expected at least 2", len(schedule))
	}

	first := schedule[0]
	if first.Payment != 0 || first.Principal != 0 || first.Interest != 0 {
		return fmt.Errorf("row 0 should carry no payment, got %+v", first)
	}
	if !mathutil.WithinRelativeTolerance(first.RemainingBalance, financed, constants.RelativeTolerance) {
		return fmt.Errorf("row 0 balance = %.6f, expected %.6f", first.RemainingBalance, financed)
	}

	principalSum := 0.0
	for i := 1; i < len(schedule); i++ {
		row := schedule[i]
		if row.PeriodIndex != i {
			return fmt.Errorf("row %d has period index %d", i, row.PeriodIndex)
		}
		if !mathutil.WithinTolerance(row.Payment, row.Principal+row.Interest, rowTolerance) {
			return fmt.Errorf("period %d: payment %.6f != principal %.6f + interest %.6f",
				i, row.Payment, row.Principal, row.Interest)
		}
		if row.RemainingBalance < 0 {
			return fmt.Errorf("period %d: negative balance %.6f", i, row.RemainingBalance)
		}
		if row.RemainingBalance > schedule[i-1].RemainingBalance+rowTolerance {
			return fmt.Errorf("period %d: balance increased from %.6f to %.6f",
				i, schedule[i-1].RemainingBalance, row.RemainingBalance)
		}
		principalSum += row.Principal
	}

	if last := schedule[len(schedule)-1]; last.RemainingBalance != 0 {
		return fmt.Errorf("final balance = %v, expected 0", last.RemainingBalance)
	}
	if !mathutil.WithinRelativeTolerance(principalSum, financed, constants.RelativeTolerance) {
		return fmt.Errorf("principal portions sum to %.6f, expected %.6f", principalSum, financed)
	}
	return nil
}
