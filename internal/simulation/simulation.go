// Package simulation defines the data structures related to a set of
// simulations and includes functions for running them.
package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iwvelando/financing-simulator/internal/cache"
	"github.com/iwvelando/financing-simulator/internal/config"
	"github.com/iwvelando/financing-simulator/internal/metrics"
	"github.com/iwvelando/financing-simulator/pkg/datetime"
	"github.com/iwvelando/financing-simulator/pkg/loans"
	"go.uber.org/zap"
)

// ErrInvalidSimulation matches every error caused by a simulation entry
// rather than by the runner.
var ErrInvalidSimulation = errors.New("invalid simulation")

// Outcome holds all information related to a specific simulation.
type Outcome struct {
	Name      string                 `json:"name"`
	Product   string                 `json:"product,omitempty"`
	StartDate string                 `json:"startDate,omitempty"`
	Params    loans.LoanParameters   `json:"params"`
	Result    loans.SimulationResult `json:"result"`
	// DueDates labels schedule rows by month when StartDate is set.
	DueDates []string `json:"dueDates,omitempty"`
	Notes    []string `json:"notes,omitempty"`
	Cached   bool     `json:"cached,omitempty"`
}

// Cache stores encoded results between runs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
}

// Runner turns simulation entries into outcomes.
type Runner struct {
	logger    *zap.Logger
	simulator *loans.Simulator
	cache     Cache
}

// NewRunner creates a runner applying the given tax policy. cache may be nil.
func NewRunner(logger *zap.Logger, tax loans.TaxPolicy, cache Cache) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger:    logger,
		simulator: loans.NewSimulator(logger, tax),
		cache:     cache,
	}
}

// Run processes every active simulation in the configuration.
func Run(logger *zap.Logger, conf config.Configuration) ([]Outcome, error) {
	return NewRunner(logger, conf.Tax.TaxPolicy(), nil).RunAll(context.Background(), conf.Simulations)
}

// RunAll processes every active simulation, stopping at the first error.
func (r *Runner) RunAll(ctx context.Context, sims []config.Simulation) ([]Outcome, error) {
	var results []Outcome
	for _, sim := range sims {
		if !sim.Active {
			r.logger.Debug("skipping inactive simulation",
				zap.String("op", "simulation.Run"),
				zap.String("simulation", sim.Name),
			)
			continue
		}

		outcome, err := r.RunSimulation(ctx, sim)
		if err != nil {
			return results, err
		}
		results = append(results, outcome)
	}

	return results, nil
}

// RunSimulation processes one simulation entry whether or not it is active.
func (r *Runner) RunSimulation(ctx context.Context, sim config.Simulation) (Outcome, error) {
	params, notes, err := sim.ToParameters()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrInvalidSimulation, err)
	}
	for _, note := range notes {
		r.logger.Warn(note,
			zap.String("op", "simulation.Run"),
			zap.String("simulation", sim.Name),
		)
	}

	result, cached, err := r.simulate(ctx, params)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w %s: %w", ErrInvalidSimulation, sim.Name, err)
	}

	outcome := Outcome{
		Name:      sim.Name,
		Product:   sim.Product,
		StartDate: sim.StartDate,
		Params:    params,
		Result:    result,
		Notes:     notes,
		Cached:    cached,
	}

	if sim.StartDate != "" {
		outcome.DueDates, err = datetime.DueDates(sim.StartDate, len(result.Schedule)-1)
		if err != nil {
			return Outcome{}, fmt.Errorf("%w %s: %w", ErrInvalidSimulation, sim.Name, err)
		}
	}

	if result.EffectiveRate != nil && !result.EffectiveRate.Converged {
		outcome.Notes = append(outcome.Notes, fmt.Sprintf(
			"effective rate %.4f%% is an estimate, the solver did not converge", result.EffectiveRate.RatePercent))
	}

	return outcome, nil
}

// cacheKey identifies a result by everything that determines it.
type cacheKey struct {
	Params loans.LoanParameters `json:"params"`
	Tax    loans.TaxPolicy      `json:"tax"`
}

func (r *Runner) simulate(ctx context.Context, params loans.LoanParameters) (loans.SimulationResult, bool, error) {
	if r.cache == nil {
		result, err := r.simulator.Simulate(params)
		metrics.ObserveSimulation(params.Method, result, err)
		return result, false, err
	}

	key, err := cache.Key(cacheKey{Params: params, Tax: r.simulator.TaxPolicy()})
	if err != nil {
		return loans.SimulationResult{}, false, err
	}

	if data, ok := r.cache.Get(ctx, key); ok {
		var result loans.SimulationResult
		if err := json.Unmarshal(data, &result); err == nil {
			metrics.ObserveCache(true)
			return result, true, nil
		}
		r.logger.Warn("discarding undecodable cached result",
			zap.String("op", "simulation.simulate"),
			zap.String("key", key),
		)
	}
	metrics.ObserveCache(false)

	result, err := r.simulator.Simulate(params)
	metrics.ObserveSimulation(params.Method, result, err)
	if err != nil {
		return result, false, err
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = r.cache.Set(ctx, key, data)
	}
	if err != nil {
		r.logger.Warn("failed to cache simulation result",
			zap.String("op", "simulation.simulate"),
			zap.Error(err),
		)
	}

	return result, false, nil
}
