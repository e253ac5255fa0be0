// Package loans provides the amortization and effective-cost engine: payment
// schedules, the embedded transaction tax, the effective rate solver and the
// simulation that composes them.
package loans

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/iwvelando/financing-simulator/pkg/mathutil"
	"go.uber.org/zap"
)

// ErrUnknownMethod is returned for amortization methods outside the closed set.
var ErrUnknownMethod = errors.New("unknown amortization method")

// Method is an amortization convention.
type Method int

const (
	// FixedInstallment is the French/Price system: constant payment.
	FixedInstallment Method = iota + 1
	// ConstantAmortization is the SAC system: constant principal portion.
	ConstantAmortization
)

// String returns the canonical configuration name of the method.
func (m Method) String() string {
	switch m {
	case FixedInstallment:
		return constants.MethodPrice
	case ConstantAmortization:
		return constants.MethodSAC
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	_, ok := amortizers[m]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod maps a method name to a Method. An empty name selects
// FixedInstallment.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", constants.MethodPrice, "french", "fixed_installment", "fixed-installment":
		return FixedInstallment, nil
	case constants.MethodSAC, "constant", "constant_amortization", "constant-amortization":
		return ConstantAmortization, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// ScheduleRow holds the values for a single period of a schedule. Row 0 is
// the state before the first payment.
type ScheduleRow struct {
	PeriodIndex      int     `json:"period"`
	Payment          float64 `json:"payment"`
	Principal        float64 `json:"principal"`
	Interest         float64 `json:"interest"`
	RemainingBalance float64 `json:"balance"`
}

// amortizer returns the principal portion due in a period given the interest
// accrued over it.
type amortizer interface {
	principalPortion(interest float64) float64
}

type fixedInstallment struct{ payment float64 }

func (f fixedInstallment) principalPortion(interest float64) float64 {
	return f.payment - interest
}

type constantAmortization struct{ principal float64 }

func (c constantAmortization) principalPortion(float64) float64 {
	return c.principal
}

type amortizerFactory func(principal, rate float64, termPeriods int) amortizer

var amortizers = map[Method]amortizerFactory{
	FixedInstallment: func(principal, rate float64, termPeriods int) amortizer {
		return fixedInstallment{payment: CalculateInstallment(principal, rate, termPeriods)}
	},
	ConstantAmortization: func(principal, _ float64, termPeriods int) amortizer {
		return constantAmortization{principal: principal / float64(termPeriods)}
	},
}

// CalculateInstallment calculates the constant payment of a fixed installment
// loan. periodicRatePercent is a percentage per period.
func CalculateInstallment(principal, periodicRatePercent float64, termPeriods int) float64 {
	if periodicRatePercent == 0 {
		// For zero interest, simply divide the principal by term
		return principal / float64(termPeriods)
	}

	// i / (1 - (1+i)^-n), evaluated through Log1p and Expm1 so rates too
	// small for 1+i to differ from 1 still give principal/n.
	i := periodicRatePercent / constants.PercentageMultiplier
	discount := -math.Expm1(-float64(termPeriods) * math.Log1p(i))
	if discount == 0 {
		return principal / float64(termPeriods)
	}
	return principal * i / discount
}

// CalculateInterest calculates the interest accrued on a balance over one period.
func CalculateInterest(balance, periodicRatePercent float64) float64 {
	return balance * periodicRatePercent / constants.PercentageMultiplier
}

// ScheduleGenerator produces amortization schedules.
type ScheduleGenerator struct {
	logger *zap.Logger
}

// NewScheduleGenerator creates a new generator instance
func NewScheduleGenerator(logger *zap.Logger) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGenerator{logger: logger}
}

// GenerateSchedule creates a schedule using a generator without logging.
func GenerateSchedule(principal, periodicRatePercent float64, termPeriods int, method Method) ([]ScheduleRow, error) {
	return NewScheduleGenerator(nil).GenerateSchedule(principal, periodicRatePercent, termPeriods, method)
}

// GenerateSchedule creates the termPeriods+1 rows of a schedule. Inputs are
// expected to be validated by the caller: principal > 0, termPeriods >= 1 and
// periodicRatePercent >= 0.
func (g *ScheduleGenerator) GenerateSchedule(principal, periodicRatePercent float64, termPeriods int, method Method) ([]ScheduleRow, error) {
	factory, ok := amortizers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(method))
	}
	if termPeriods < 1 {
		return nil, fmt.Errorf("term must be at least one period, got %d", termPeriods)
	}
	a := factory(principal, periodicRatePercent, termPeriods)

	schedule := make([]ScheduleRow, termPeriods+1)
	schedule[0] = ScheduleRow{RemainingBalance: principal}

	balance := principal
	for period := 1; period <= termPeriods; period++ {
		interest := CalculateInterest(balance, periodicRatePercent)
		portion := a.principalPortion(interest)
		if period == termPeriods {
			// The final period settles whatever drift is left.
			portion = balance
		}

		balance = mathutil.ClampNonNegative(balance - portion)
		if period == termPeriods {
			balance = 0
		}

		schedule[period] = ScheduleRow{
			PeriodIndex:      period,
			Payment:          portion + interest,
			Principal:        portion,
			Interest:         interest,
			RemainingBalance: balance,
		}
	}

	g.logger.Debug("generated schedule",
		zap.String("op", "loans.GenerateSchedule"),
		zap.Stringer("method", method),
		zap.Int("termPeriods", termPeriods),
		zap.Float64("principal", principal),
		zap.Float64("periodicRate", periodicRatePercent),
		zap.Float64("firstPayment", schedule[1].Payment),
	)

	return schedule, nil
}

// TotalPaid sums the payments of rows 1..n.
func TotalPaid(schedule []ScheduleRow) float64 {
	total := 0.0
	for _, row := range schedule {
		if row.PeriodIndex == 0 {
			continue
		}
		total += row.Payment
	}
	return total
}

// Payments returns the payment stream of rows 1..n, in order.
func Payments(schedule []ScheduleRow) []float64 {
	flows := make([]float64, 0, len(schedule))
	for _, row := range schedule {
		if row.PeriodIndex == 0 {
			continue
		}
		flows = append(flows, row.Payment)
	}
	return flows
}
