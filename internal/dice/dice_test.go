package dice

import (
	"errors"
	"testing"
)

func TestRoll_Validation(t *testing.T) {
	cases := []struct {
		name    string
		sides   int
		count   int
		wantErr error
	}{
		{"zero sides", 0, 1, ErrInvalidSides},
		{"negative sides", -6, 1, ErrInvalidSides},
		{"zero count", 20, 0, ErrInvalidCount},
		{"negative count", 20, -1, ErrInvalidCount},
		{"count over limit", 20, MaxCount + 1, ErrInvalidCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Roll(tc.sides, tc.count)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRoll_Deterministic(t *testing.T) {
	orig := intN
	defer func() { intN = orig }()

	// Always roll the die's maximum face minus one from IntN, i.e. 17 on a d20
	// when IntN returns 16.
	intN = func(n int) int { return 16 }

	rolls, total, err := Roll(20, 1)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rolls) != 1 || rolls[0] != 17 || total != 17 {
		t.Fatalf("want [17] total 17, got %v total %d", rolls, total)
	}
}

func TestRoll_BoundsAndTotal(t *testing.T) {
	rolls, total, err := Roll(6, 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rolls) != 10 {
		t.Fatalf("want 10 rolls, got %d", len(rolls))
	}
	sum := 0
	for _, r := range rolls {
		if r < 1 || r > 6 {
			t.Fatalf("roll %d out of range for a d6", r)
		}
		sum += r
	}
	if sum != total {
		t.Fatalf("total %d does not match sum %d", total, sum)
	}
}
