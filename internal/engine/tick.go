// Package engine runs the simulation: the pure per-tick Step, the Simulation
// that owns one world, and the Engine that drives it in real time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/tribe-world/internal/weather"
)

// TicksPerSeason is a quarter of the simulated year.
const TicksPerSeason = weather.TicksPerYear / weather.SeasonCount

// Engine drives a Simulation forward on a wall-clock interval.
type Engine struct {
	Sim      *Simulation
	Interval time.Duration // base tick interval at speed 1
	MaxTicks uint64        // stop after this many ticks; 0 runs until cancelled

	mu    sync.Mutex
	speed float64 // 1.0 = real-time, 0 = paused

	// Callbacks, populated during setup.
	OnTick   func(tick uint64, st Stats)
	OnSeason func(tick uint64)
	OnYear   func(tick uint64)
}

// NewEngine creates an engine for sim with default settings.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:      sim,
		Interval: 200 * time.Millisecond,
		speed:    1.0,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero or below pauses the engine.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	e.speed = v
	e.mu.Unlock()
	slog.Info("engine speed changed", "speed", v)
}

// Run steps the simulation until ctx is cancelled or MaxTicks is reached.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.Sim.Tick(), "speed", e.Speed())
	defer func() { slog.Info("simulation engine stopped", "tick", e.Sim.Tick()) }()

	var ran uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.MaxTicks > 0 && ran >= e.MaxTicks {
			return nil
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			if !sleepCtx(ctx, 100*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}

		start := time.Now()
		e.step()
		ran++

		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			if !sleepCtx(ctx, target-elapsed) {
				return ctx.Err()
			}
		}
	}
}

// step advances one tick and fires the callbacks that fall on it.
func (e *Engine) step() {
	st := e.Sim.Advance()
	tick := st.Tick

	if e.OnTick != nil {
		e.OnTick(tick, st)
	}
	if tick%TicksPerSeason == 0 && e.OnSeason != nil {
		e.OnSeason(tick)
	}
	if tick%weather.TicksPerYear == 0 && e.OnYear != nil {
		e.OnYear(tick)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SimTime returns a human-readable time for a tick.
func SimTime(tick uint64) string {
	s := weather.SeasonAt(tick)
	day := s.DayInYear%TicksPerSeason + 1
	return fmt.Sprintf("%s Day %d, Year %d", s.Name, day, s.Year+1)
}
