package mathx

import (
	"math"
	"testing"
)

func TestClampF(t *testing.T) {
	cases := []struct {
		in, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{math.NaN(), 0, 1, 0},
		{math.Inf(1), -1, 1, -1},
	}
	for _, c := range cases {
		if got := ClampF(c.in, c.lo, c.hi); got != c.want {
			t.Errorf("ClampF(%v, %v, %v) = %v, want %v", c.in, c.lo, c.hi, got, c.want)
		}
	}
}

func TestChebyshev(t *testing.T) {
	if d := Chebyshev(0, 0, 3, -5); d != 5 {
		t.Fatalf("Chebyshev = %d, want 5", d)
	}
	if d := Chebyshev(1.5, 2.0, 1.0, 2.25); d != 0.5 {
		t.Fatalf("Chebyshev = %v, want 0.5", d)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(3.14159); got != 3.14 {
		t.Fatalf("Round2 = %v", got)
	}
}

func TestMean(t *testing.T) {
	if Mean(nil) != 0 {
		t.Fatal("empty mean should be 0")
	}
	if Mean([]float64{1, 2, 3}) != 2 {
		t.Fatal("mean of 1,2,3 should be 2")
	}
}
