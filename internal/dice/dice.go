// Package dice implements server-authoritative dice rolling. Clients only
// request rolls; results always come from here.
package dice

import (
	"errors"
	"math/rand/v2"
)

var ErrInvalidSides = errors.New("sides must be positive")
var ErrInvalidCount = errors.New("count must be between 1 and 100")

// MaxCount bounds a single request so one event can't flood the log.
const MaxCount = 100

// Stubbed in tests for deterministic rolls.
var intN = rand.IntN

// Roll rolls count dice with the given number of sides. It returns each
// individual result plus the total.
func Roll(sides, count int) ([]int, int, error) {
	if sides <= 0 {
		return nil, 0, ErrInvalidSides
	}
	if count <= 0 || count > MaxCount {
		return nil, 0, ErrInvalidCount
	}

	rolls := make([]int, count)
	total := 0
	for i := range rolls {
		rolls[i] = intN(sides) + 1
		total += rolls[i]
	}
	return rolls, total, nil
}
