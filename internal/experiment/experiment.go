// Package experiment runs batches of independent simulations and aggregates
// their final statistics.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/tribe-world/internal/engine"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/world"
)

// ErrInvalidConfig reports a batch that cannot run.
var ErrInvalidConfig = errors.New("invalid experiment config")

// Config describes one batch.
type Config struct {
	Runs          int
	TicksPerRun   int
	WorldSize     int
	BaseSeed      string
	Parallelism   int // concurrent runs; 0 uses GOMAXPROCS
	InitialAgents int
	Noise         world.NoiseKind
	Policy        social.Policy
}

// DefaultConfig returns the stock batch.
func DefaultConfig() Config {
	return Config{
		Runs:          10,
		TicksPerRun:   300,
		WorldSize:     160,
		BaseSeed:      "experiment",
		InitialAgents: engine.DefaultInitialAgents,
	}
}

func (c Config) validate() error {
	switch {
	case c.Runs <= 0:
		return fmt.Errorf("%w: runs must be positive, got %d", ErrInvalidConfig, c.Runs)
	case c.TicksPerRun <= 0:
		return fmt.Errorf("%w: ticks per run must be positive, got %d", ErrInvalidConfig, c.TicksPerRun)
	case c.WorldSize < 2:
		return fmt.Errorf("%w: world size must be at least 2, got %d", ErrInvalidConfig, c.WorldSize)
	case c.Parallelism < 0:
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Record is the outcome of one run.
type Record struct {
	Run             int           `json:"run"`
	Seed            string        `json:"seed"`
	FinalPopulation int           `json:"finalPopulation"`
	FinalTribes     int           `json:"finalTribes"`
	MeanTech        float64       `json:"meanTech"`
	TotalBeliefs    int           `json:"totalBeliefs"`
	MeanTrust       float64       `json:"meanTrust"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Summary aggregates one metric over all runs.
type Summary struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Summaries holds one Summary per reported metric.
type Summaries struct {
	Population Summary `json:"population"`
	Tribes     Summary `json:"tribes"`
	Tech       Summary `json:"tech"`
	Beliefs    Summary `json:"beliefs"`
	Trust      Summary `json:"trust"`
}

// Result is a finished batch. Records are in run order.
type Result struct {
	BatchID     string    `json:"batchId"`
	Runs        int       `json:"runs"`
	TicksPerRun int       `json:"ticksPerRun"`
	Records     []Record  `json:"records"`
	Summary     Summaries `json:"summary"`
}

// Seed returns the seed of run i (1-based).
func Seed(base string, i int) string {
	return fmt.Sprintf("%s-%d", base, i)
}

// Run executes the batch. Runs share nothing, so they may execute in
// parallel; cancellation is checked between ticks.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	workers := cfg.Parallelism
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, cfg.Runs)

	batch := uuid.NewString()
	slog.Info("experiment started", "batch", batch, "runs", cfg.Runs, "ticks", cfg.TicksPerRun, "workers", workers)

	records := make([]Record, cfg.Runs)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rec, ok := runOne(ctx, cfg, i)
				if ok {
					records[i-1] = rec
				}
			}
		}()
	}

feed:
	for i := 1; i <= cfg.Runs; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("experiment %s: %w", batch, err)
	}

	res := Result{
		BatchID:     batch,
		Runs:        cfg.Runs,
		TicksPerRun: cfg.TicksPerRun,
		Records:     records,
		Summary:     Summarize(records),
	}
	slog.Info("experiment finished", "batch", batch,
		"population", res.Summary.Population.Mean,
		"tribes", res.Summary.Tribes.Mean,
	)
	return res, nil
}

// runOne runs simulation i to completion. It reports false when cancelled.
func runOne(ctx context.Context, cfg Config, i int) (Record, bool) {
	start := time.Now()
	seed := Seed(cfg.BaseSeed, i)
	sim := engine.NewSimulation(engine.Config{
		World: world.GenConfig{
			Width:  cfg.WorldSize,
			Height: cfg.WorldSize,
			Seed:   seed,
			Noise:  cfg.Noise,
		},
		InitialAgents: cfg.InitialAgents,
		Policy:        cfg.Policy,
	})

	var last engine.Stats
	for t := 0; t < cfg.TicksPerRun; t++ {
		if ctx.Err() != nil {
			return Record{}, false
		}
		last = sim.Advance()
	}

	rec := Record{
		Run:             i,
		Seed:            seed,
		FinalPopulation: last.Population,
		FinalTribes:     last.Tribes,
		MeanTech:        last.MeanGlobalTechLevel,
		TotalBeliefs:    last.TotalBeliefs,
		MeanTrust:       last.MeanTrustScore,
		Elapsed:         time.Since(start),
	}
	slog.Debug("experiment run finished", "run", i, "seed", seed, "population", rec.FinalPopulation, "elapsed", rec.Elapsed)
	return rec, true
}

// Summarize aggregates the records' final metrics.
func Summarize(records []Record) Summaries {
	var pop, tribes, tech, beliefs, trust []float64
	for _, r := range records {
		pop = append(pop, float64(r.FinalPopulation))
		tribes = append(tribes, float64(r.FinalTribes))
		tech = append(tech, r.MeanTech)
		beliefs = append(beliefs, float64(r.TotalBeliefs))
		trust = append(trust, r.MeanTrust)
	}
	return Summaries{
		Population: summarize(pop),
		Tribes:     summarize(tribes),
		Tech:       summarize(tech),
		Beliefs:    summarize(beliefs),
		Trust:      summarize(trust),
	}
}

// summarize returns the population mean, variance, min and max. Empty input
// summarizes to zeros.
func summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, x := range xs {
		s.Mean += x
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}
	s.Mean /= float64(len(xs))
	for _, x := range xs {
		d := x - s.Mean
		s.Variance += d * d
	}
	s.Variance /= float64(len(xs))
	return s
}
