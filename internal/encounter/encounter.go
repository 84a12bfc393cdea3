package encounter

import (
	"errors"
	"sort"
)

var ErrEncounterActive = errors.New("encounter already active")
var ErrNoEncounter = errors.New("no active encounter")
var ErrTooFewCombatants = errors.New("need at least two combatants")
var ErrUnsupportedCommand = errors.New("unsupported command")

// InitiativeEntry is one combatant in turn order.
type InitiativeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Roll int    `json:"roll"`
}

// State is the full encounter projection. It is replaced wholesale when an
// encounter starts or ends; between those, only the turn pointer moves.
// The entry list is set once per encounter and never changes membership.
type State struct {
	Active        bool              `json:"is_active"`
	Entries       []InitiativeEntry `json:"initiative_entries"`
	ActiveEntryID string            `json:"active_initiative_entry_id,omitempty"`
	TurnIndex     int               `json:"turn_index"`
}

type CommandType string

const (
	CmdStartEncounter CommandType = "StartEncounter"
	CmdNextTurn       CommandType = "NextTurn"
	CmdEndEncounter   CommandType = "EndEncounter"
)

type Command struct {
	Type   CommandType
	Roster []InitiativeEntry // only for StartEncounter
}

type EventType string

const (
	EvtEncounterStarted EventType = "EncounterStarted"
	EvtTurnAdvanced     EventType = "TurnAdvanced"
	EvtEncounterEnded   EventType = "EncounterEnded"
)

type Event struct {
	Type EventType
}

// Apply runs one command against the state and returns the events it
// produced plus the new state. State is never mutated in place.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartEncounter:
		if s.Active {
			return nil, s, ErrEncounterActive
		}
		if len(cmd.Roster) < 2 {
			return nil, s, ErrTooFewCombatants
		}
		entries := SortByInitiative(cmd.Roster)
		newState := State{
			Active:        true,
			Entries:       entries,
			ActiveEntryID: entries[0].ID,
			TurnIndex:     0,
		}
		return []Event{{Type: EvtEncounterStarted}}, newState, nil

	case CmdNextTurn:
		if !s.Active {
			return nil, s, ErrNoEncounter
		}
		newState := s
		newState.TurnIndex = (s.TurnIndex + 1) % len(s.Entries)
		newState.ActiveEntryID = s.Entries[newState.TurnIndex].ID
		return []Event{{Type: EvtTurnAdvanced}}, newState, nil

	case CmdEndEncounter:
		if !s.Active {
			return nil, s, ErrNoEncounter
		}
		return []Event{{Type: EvtEncounterEnded}}, State{}, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// SortByInitiative returns a copy ordered by descending roll. Equal rolls
// keep their original relative order.
func SortByInitiative(entries []InitiativeEntry) []InitiativeEntry {
	out := make([]InitiativeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Roll > out[j].Roll })
	return out
}

// PatchTurn applies a turn_update to an existing state. A patch without an
// active encounter is a no-op; there is nothing to point the turn at.
func PatchTurn(s State, activeEntryID string, turnIndex int) State {
	if !s.Active {
		return s
	}
	s.ActiveEntryID = activeEntryID
	s.TurnIndex = turnIndex
	return s
}
