// Package roster collects combatants for a new encounter before combat
// begins. It is the setup-time working list only; the finished roster is
// handed to the caller and the caller sends it onward. No network I/O
// happens here.
package roster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aethoria/campaign-backend/internal/encounter"
)

var ErrMissingSelection = errors.New("combatant needs an id and a name")
var ErrInvalidRoll = errors.New("initiative roll must be an integer")
var ErrDuplicateCombatant = errors.New("combatant already in the roster")
var ErrTooFewCombatants = errors.New("need at least two combatants to start")

// Builder is the working list behind the encounter setup flow. Reset is
// called whenever the flow is reopened.
type Builder struct {
	entries  []encounter.InitiativeEntry
	monsters map[string]int
}

func NewBuilder() *Builder {
	return &Builder{monsters: make(map[string]int)}
}

// Add appends a combatant, rejecting ids already in the working list so a
// duplicate never reaches the sorted output.
func (b *Builder) Add(id, name string, roll int) error {
	if id == "" || name == "" {
		return ErrMissingSelection
	}
	for _, e := range b.entries {
		if e.ID == id {
			return fmt.Errorf("%w: %s", ErrDuplicateCombatant, id)
		}
	}
	b.entries = append(b.entries, encounter.InitiativeEntry{ID: id, Name: name, Roll: roll})
	return nil
}

// AddMonster adds a monster combatant. Repeated species get a #n suffix so
// two goblins never share an id. Returns the id actually used.
func (b *Builder) AddMonster(name string, roll int) (string, error) {
	if name == "" {
		return "", ErrMissingSelection
	}
	b.monsters[name]++
	id := MonsterID(name, b.monsters[name])
	return id, b.Add(id, name, roll)
}

func (b *Builder) Len() int { return len(b.entries) }

func (b *Builder) Reset() {
	b.entries = nil
	b.monsters = make(map[string]int)
}

// Build validates the working list and returns it sorted by descending
// roll, add order breaking ties.
func (b *Builder) Build() ([]encounter.InitiativeEntry, error) {
	if len(b.entries) < 2 {
		return nil, ErrTooFewCombatants
	}
	return encounter.SortByInitiative(b.entries), nil
}

// ParseRoll converts user input into an initiative roll.
func ParseRoll(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoll, s)
	}
	return n, nil
}

// MonsterID disambiguates repeated monster names within one roster.
func MonsterID(name string, n int) string {
	if n <= 1 {
		return name
	}
	return fmt.Sprintf("%s#%d", name, n)
}

// CharacterID derives a roster id from a character record id.
func CharacterID(id uint) string {
	return fmt.Sprintf("char-%d", id)
}
