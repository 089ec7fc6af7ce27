package weather

import (
	"math"
	"testing"
)

func TestSeasonAt(t *testing.T) {
	cases := []struct {
		tick uint64
		idx  int
		year int
	}{
		{0, SeasonSpring, 0},
		{49, SeasonSpring, 0},
		{50, SeasonSummer, 0},
		{150, SeasonWinter, 0},
		{199, SeasonWinter, 0},
		{200, SeasonSpring, 1},
		{410, SeasonSpring, 2},
		{455, SeasonSummer, 2},
	}
	for _, c := range cases {
		s := SeasonAt(c.tick)
		if s.Index != c.idx || s.Year != c.year {
			t.Errorf("SeasonAt(%d) = %+v, want index %d year %d", c.tick, s, c.idx, c.year)
		}
	}
}

func TestIntensityFalloff(t *testing.T) {
	events := []Event{{Type: Wildfire, X: 10, Y: 10, Radius: 4, Intensity: 1}}
	if got := IntensityAt(events, Wildfire, 10, 10); got != 1 {
		t.Fatalf("center intensity = %v, want 1", got)
	}
	if got := IntensityAt(events, Wildfire, 12, 10); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("half-radius intensity = %v, want 0.5", got)
	}
	if got := IntensityAt(events, Wildfire, 20, 10); got != 0 {
		t.Fatalf("outside radius = %v, want 0", got)
	}
	if got := IntensityAt(events, Flood, 10, 10); got != 0 {
		t.Fatalf("other type = %v, want 0", got)
	}
}

func TestIntensityClamped(t *testing.T) {
	var events []Event
	for i := 0; i < 5; i++ {
		events = append(events, Event{Type: Drought, X: 0, Y: 0, Radius: 10, Intensity: 1})
	}
	if got := IntensityAt(events, Drought, 0, 0); got != MaxIntensity {
		t.Fatalf("stacked intensity = %v, want %v", got, MaxIntensity)
	}
}

func TestAdvanceLongRun(t *testing.T) {
	env := NewEnvironment()
	lastSeen := map[string]int{}
	spawned := 0
	for tick := uint64(1); tick <= 1000; tick++ {
		env = env.Advance("climate-run", tick, 64, 48)
		if math.Abs(env.Climate.TempShift) > 0.36 || math.Abs(env.Climate.HumidityShift) > 0.36 {
			t.Fatalf("tick %d: climate shift out of range: %+v", tick, env.Climate)
		}
		present := map[string]bool{}
		for _, e := range env.Events {
			if e.RemainingTicks <= 0 {
				t.Fatalf("tick %d: event %s lingers with %d remaining", tick, e.ID, e.RemainingTicks)
			}
			if _, ok := lastSeen[e.ID]; !ok {
				spawned++
			}
			present[e.ID] = true
			lastSeen[e.ID] = e.RemainingTicks
		}
		for id, rem := range lastSeen {
			if present[id] {
				continue
			}
			if rem != 1 {
				t.Fatalf("tick %d: event %s removed with %d ticks left", tick, id, rem)
			}
			delete(lastSeen, id)
		}
	}
	t.Logf("spawned %d events", spawned)
}

func TestAdvanceDoesNotMutateReceiver(t *testing.T) {
	env := NewEnvironment()
	env.Events = []Event{{ID: "e", Type: Flood, RemainingTicks: 3}}
	_ = env.Advance("s", 1, 10, 10)
	if env.Events[0].RemainingTicks != 3 {
		t.Fatal("advance mutated the previous environment")
	}
}
