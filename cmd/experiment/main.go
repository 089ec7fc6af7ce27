// Command experiment runs a batch of independent simulations and prints
// per-run results and aggregate statistics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tribe-world/internal/config"
	"github.com/talgya/tribe-world/internal/experiment"
)

func main() {
	configPath := flag.String("config", "", "YAML config file overlaying the defaults")
	runs := flag.Int("runs", 0, "number of runs (overrides config)")
	ticks := flag.Int("ticks", 0, "ticks per run (overrides config)")
	size := flag.Int("size", 0, "world width and height (overrides config)")
	seed := flag.String("seed", "", "base seed; run i uses <seed>-<i> (overrides config)")
	parallel := flag.Int("parallel", -1, "concurrent runs, 0 for all CPUs (overrides config)")
	jsonOut := flag.String("json", "", "also write the full result as JSON to this file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	batch := cfg.BatchConfig()
	if *runs > 0 {
		batch.Runs = *runs
	}
	if *ticks > 0 {
		batch.TicksPerRun = *ticks
	}
	if *size > 0 {
		batch.WorldSize = *size
	}
	if *seed != "" {
		batch.BaseSeed = *seed
	}
	if *parallel >= 0 {
		batch.Parallelism = *parallel
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := experiment.Run(ctx, batch)
	if err != nil {
		slog.Error("experiment failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("batch %s: %d runs x %s ticks on %dx%d worlds in %s\n\n",
		res.BatchID, res.Runs, humanize.Comma(int64(res.TicksPerRun)),
		batch.WorldSize, batch.WorldSize, time.Since(start).Round(time.Millisecond))

	fmt.Printf("%-18s %10s %7s %9s %8s %10s\n", "seed", "population", "tribes", "meanTech", "beliefs", "meanTrust")
	for _, r := range res.Records {
		fmt.Printf("%-18s %10d %7d %9.3f %8d %10.3f\n",
			r.Seed, r.FinalPopulation, r.FinalTribes, r.MeanTech, r.TotalBeliefs, r.MeanTrust)
	}

	fmt.Printf("\n%-12s %10s %10s %10s %10s\n", "metric", "mean", "variance", "min", "max")
	for _, row := range []struct {
		name string
		s    experiment.Summary
	}{
		{"population", res.Summary.Population},
		{"tribes", res.Summary.Tribes},
		{"tech", res.Summary.Tech},
		{"beliefs", res.Summary.Beliefs},
		{"trust", res.Summary.Trust},
	} {
		fmt.Printf("%-12s %10.3f %10.3f %10.3f %10.3f\n", row.name, row.s.Mean, row.s.Variance, row.s.Min, row.s.Max)
	}

	if *jsonOut != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			slog.Error("failed to encode result", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*jsonOut, data, 0o644); err != nil {
			slog.Error("failed to write result", "path", *jsonOut, "error", err)
			os.Exit(1)
		}
		slog.Info("result written", "path", *jsonOut, "size", humanize.Bytes(uint64(len(data))))
	}
}
