// Command worldsim runs the tribe-world simulation as a long-lived service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tribe-world/internal/api"
	"github.com/talgya/tribe-world/internal/config"
	"github.com/talgya/tribe-world/internal/engine"
	"github.com/talgya/tribe-world/internal/persistence"
	"github.com/talgya/tribe-world/internal/world"
)

func main() {
	configPath := flag.String("config", "", "YAML config file overlaying the defaults")
	snapshotPath := flag.String("snapshot", "", "resume from this snapshot file instead of the database")
	fresh := flag.Bool("fresh", false, "ignore saved state and generate a new world")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("tribe-world starting", "config", *configPath, "seed", cfg.World.Seed)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Persistence.DBPath), 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.Persistence.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Persistence.DBPath)

	// ── Load or Generate World ───────────────────────────────────────
	sim, err := loadOrGenerate(cfg, db, *snapshotPath, *fresh)
	if err != nil {
		slog.Error("failed to prepare world", "error", err)
		os.Exit(1)
	}

	width, height, biomes := sim.MapSummary()
	logBiomes(biomes)
	slog.Info("world ready",
		"seed", sim.Seed(),
		"size", fmt.Sprintf("%dx%d", width, height),
		"agents", humanize.Comma(int64(len(sim.Agents()))),
		"tribes", len(sim.Tribes()),
		"tick", sim.Tick(),
	)

	// Save fresh worlds immediately so a crash before the first autosave
	// still resumes the same seed.
	if sim.Tick() == 0 {
		if _, err := db.SaveSimulation(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(sim)
	eng.Interval = cfg.Simulation.TickInterval
	eng.MaxTicks = cfg.Simulation.MaxTicks
	eng.SetSpeed(cfg.Simulation.Speed)

	every := cfg.Simulation.AutosaveEveryTicks
	eng.OnTick = func(tick uint64, _ engine.Stats) {
		if every == 0 || tick%every != 0 {
			return
		}
		autosave(db, sim, cfg.Persistence.KeepSnapshots)
	}
	eng.OnYear = func(tick uint64) {
		if cfg.Persistence.SnapshotDir == "" {
			return
		}
		path := filepath.Join(cfg.Persistence.SnapshotDir, fmt.Sprintf("tick-%08d.json.zst", tick))
		if err := persistence.WriteFile(path, persistence.FromView(sim.Snapshot(), time.Now())); err != nil {
			slog.Error("yearly snapshot file failed", "path", path, "error", err)
			return
		}
		slog.Info("yearly snapshot written", "path", path)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	var apiServer *api.Server
	if cfg.API.Enabled {
		if cfg.AdminKey == "" {
			slog.Warn(config.AdminKeyEnv + " not set, admin POST endpoints will be disabled")
		}
		apiServer = &api.Server{
			Sim:      sim,
			Eng:      eng,
			DB:       db,
			Port:     cfg.API.Port,
			AdminKey: cfg.AdminKey,
		}
		apiServer.Start()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}

	// ── Run ───────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sim.Tick() > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", sim.Tick(), engine.SimTime(sim.Tick()))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("engine stopped", "error", err)
	}

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("API shutdown failed", "error", err)
		}
		cancel()
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if _, err := db.SaveSimulation(sim); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. World state saved.")
}

// loadOrGenerate resumes from a snapshot file, else from the newest stored
// snapshot, else generates a new world from config.
func loadOrGenerate(cfg *config.Config, db *persistence.DB, snapshotPath string, fresh bool) (*engine.Simulation, error) {
	if fresh {
		slog.Info("fresh start requested, generating new world...")
		return engine.NewSimulation(cfg.SimConfig()), nil
	}

	var (
		snap persistence.Snapshot
		err  error
	)
	if snapshotPath != "" {
		snap, err = persistence.ReadFile(snapshotPath)
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", snapshotPath, err)
		}
	} else {
		snap, err = db.LatestSnapshot()
		if errors.Is(err, persistence.ErrNoSnapshot) {
			slog.Info("no saved state found, generating new world...")
			return engine.NewSimulation(cfg.SimConfig()), nil
		}
		if err != nil {
			return nil, err
		}
	}

	slog.Info("world state restored",
		"seed", snap.Seed,
		"tick", snap.Tick,
		"saved", humanize.Time(snap.SavedAt),
		"sim_time", engine.SimTime(snap.Tick),
	)
	return engine.Restore(snap.Seed, snap.World, snap.Agents, snap.State, snap.Tick, cfg.Policy), nil
}

func autosave(db *persistence.DB, sim *engine.Simulation, keep int) {
	if _, err := db.SaveSimulation(sim); err != nil {
		slog.Error("autosave failed", "error", err)
		return
	}
	if keep <= 0 {
		return
	}
	if n, err := db.PruneSnapshots(keep); err != nil {
		slog.Error("snapshot prune failed", "error", err)
	} else if n > 0 {
		slog.Debug("old snapshots pruned", "count", n)
	}
}

func logBiomes(counts map[world.Biome]int) {
	biomes := make([]world.Biome, 0, len(counts))
	for b := range counts {
		biomes = append(biomes, b)
	}
	sort.Slice(biomes, func(i, j int) bool { return biomes[i] < biomes[j] })
	for _, b := range biomes {
		slog.Info("biome", "type", b.String(), "tiles", counts[b])
	}
}
