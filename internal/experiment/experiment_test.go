package experiment

import (
	"context"
	"errors"
	"math"
	"testing"
)

func smallConfig() Config {
	return Config{Runs: 3, TicksPerRun: 20, WorldSize: 20, BaseSeed: "exp", InitialAgents: 30}
}

func stripTiming(rs []Record) []Record {
	out := append([]Record(nil), rs...)
	for i := range out {
		out[i].Elapsed = 0
	}
	return out
}

func TestRunOrderAndSeeds(t *testing.T) {
	res, err := Run(context.Background(), smallConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.BatchID == "" {
		t.Fatal("missing batch id")
	}
	if len(res.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(res.Records))
	}
	for i, r := range res.Records {
		if r.Run != i+1 || r.Seed != Seed("exp", i+1) {
			t.Fatalf("record %d = run %d seed %q", i, r.Run, r.Seed)
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	seq := smallConfig()
	seq.Parallelism = 1
	par := smallConfig()
	par.Parallelism = 3

	a, err := Run(context.Background(), seq)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	b, err := Run(context.Background(), par)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	ra, rb := stripTiming(a.Records), stripTiming(b.Records)
	for i := range ra {
		if ra[i] != rb[i] {
			t.Fatalf("run %d differs: %+v vs %+v", i+1, ra[i], rb[i])
		}
	}
	if a.Summary != b.Summary {
		t.Fatalf("summaries differ: %+v vs %+v", a.Summary, b.Summary)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, smallConfig()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Runs: 0, TicksPerRun: 1, WorldSize: 10},
		{Runs: 1, TicksPerRun: 0, WorldSize: 10},
		{Runs: 1, TicksPerRun: 1, WorldSize: 1},
		{Runs: 1, TicksPerRun: 1, WorldSize: 10, Parallelism: -1},
	} {
		if _, err := Run(context.Background(), cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%+v: err = %v", cfg, err)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := summarize([]float64{2, 4, 6})
	if s.Mean != 4 || s.Min != 2 || s.Max != 6 {
		t.Fatalf("summary = %+v", s)
	}
	if math.Abs(s.Variance-8.0/3) > 1e-12 {
		t.Fatalf("variance = %v, want population variance 8/3", s.Variance)
	}
	if summarize(nil) != (Summary{}) {
		t.Fatal("empty input should summarize to zeros")
	}
}
