package entropy

import "testing"

type testID uint64

func TestValueDeterministic(t *testing.T) {
	a := Value("seed", "move", 12, uint64(7))
	b := Value("seed", "move", 12, uint64(7))
	if a != b {
		t.Fatalf("same inputs gave %v and %v", a, b)
	}
	if a < 0 || a >= 1 {
		t.Fatalf("value %v outside [0,1)", a)
	}
}

func TestValueDistinctKeys(t *testing.T) {
	if Value("seed", "ab", "c") == Value("seed", "a", "bc") {
		t.Fatal("part boundaries should change the value")
	}
	if Value("seed-1", "x") == Value("seed-2", "x") {
		t.Fatal("different seeds should differ")
	}
}

func TestValueNamedTypes(t *testing.T) {
	if Value("s", testID(9)) != Value("s", uint64(9)) {
		t.Fatal("named integer types should hash by value")
	}
}

func TestValueRoughlyUniform(t *testing.T) {
	const n = 20000
	var buckets [10]int
	for i := 0; i < n; i++ {
		v := Value("uniform", i)
		buckets[Index(v, 10)]++
	}
	for i, c := range buckets {
		if c < n/10-400 || c > n/10+400 {
			t.Errorf("bucket %d has %d samples, want about %d", i, c, n/10)
		}
	}
}

func TestIndexBounds(t *testing.T) {
	if Index(0.999999, 5) != 4 {
		t.Fatal("index should stay below n")
	}
	if Index(0.5, 0) != 0 {
		t.Fatal("empty range should return 0")
	}
}

func TestSeed64Stable(t *testing.T) {
	if Seed64("alpha") != Seed64("alpha") {
		t.Fatal("seed derivation must be stable")
	}
	if Seed64("alpha") < 0 {
		t.Fatal("derived seed should be non-negative")
	}
}
