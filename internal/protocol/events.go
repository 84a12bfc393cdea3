package protocol

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Event types carried over the campaign room connection.
const (
	TypeChat            = "chat"
	TypeDiceRoll        = "dice_roll"
	TypeUserJoin        = "user_join"
	TypeUserLeave       = "user_leave"
	TypeError           = "error"
	TypeEncounterUpdate = "encounter_update"
	TypeTurnUpdate      = "turn_update"

	// Client -> server only.
	TypeStartEncounter = "start_encounter"
	TypeNextTurn       = "next_turn"
	TypeEndEncounter   = "end_encounter"
)

// Event is one message exchanged over the live connection. Type determines
// the shape of Payload. Unrecognized types are still valid events; they are
// rendered as plain log lines so old clients survive new event types.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

type ChatPayload struct {
	Text          string `json:"text"`
	CharacterName string `json:"characterName"`
}

type DiceRollPayload struct {
	Sides         int    `json:"sides"`
	Count         int    `json:"count"`
	CharacterName string `json:"characterName"`
	Rolls         []int  `json:"rolls,omitempty"`
	Total         int    `json:"total,omitempty"`
}

type TurnUpdatePayload struct {
	ActiveEntryID string `json:"active_entry_id"`
	TurnIndex     int    `json:"turn_index"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresencePayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// NewEvent builds an Event with the payload marshaled in place.
func NewEvent(typ string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{Type: typ, Payload: raw}, nil
}

// Decode parses a wire message into an Event. A missing type field is an
// error; an unknown type is not.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return ev, nil
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodePayload unmarshals the event payload into dst, validating shape at
// the transport boundary instead of deeper in the application.
func (e Event) DecodePayload(dst any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s event: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%s payload: %w", e.Type, err)
	}
	return nil
}

// IsLoggable reports whether an event belongs in the chat log. Encounter
// and turn updates mutate projection state instead of the log; everything
// else, unknown types included, is a log line.
func IsLoggable(typ string) bool {
	switch typ {
	case TypeEncounterUpdate, TypeTurnUpdate:
		return false
	default:
		return true
	}
}

// RenderLogLine formats an event the way the room log displays it, e.g.
// "Aria: rolled 1d20: 17 (17)".
func RenderLogLine(ev Event) string {
	switch ev.Type {
	case TypeChat:
		var p ChatPayload
		if err := ev.DecodePayload(&p); err != nil {
			return fallbackLine(ev)
		}
		name := p.CharacterName
		if name == "" {
			name = ev.Sender
		}
		return fmt.Sprintf("%s: %s", name, p.Text)
	case TypeDiceRoll:
		var p DiceRollPayload
		if err := ev.DecodePayload(&p); err != nil {
			return fallbackLine(ev)
		}
		name := p.CharacterName
		if name == "" {
			name = ev.Sender
		}
		rolls := make([]string, len(p.Rolls))
		for i, r := range p.Rolls {
			rolls[i] = fmt.Sprintf("%d", r)
		}
		return fmt.Sprintf("%s: rolled %dd%d: %s (%d)", name, p.Count, p.Sides, strings.Join(rolls, ", "), p.Total)
	case TypeUserJoin:
		var p PresencePayload
		if err := ev.DecodePayload(&p); err != nil {
			return fallbackLine(ev)
		}
		return fmt.Sprintf("%s joined the room", p.UserName)
	case TypeUserLeave:
		var p PresencePayload
		if err := ev.DecodePayload(&p); err != nil {
			return fallbackLine(ev)
		}
		return fmt.Sprintf("%s left the room", p.UserName)
	case TypeError:
		var p ErrorPayload
		if err := ev.DecodePayload(&p); err != nil {
			return fallbackLine(ev)
		}
		return fmt.Sprintf("error: %s", p.Message)
	default:
		return fallbackLine(ev)
	}
}

func fallbackLine(ev Event) string {
	if len(ev.Payload) == 0 {
		return ev.Type
	}
	return fmt.Sprintf("%s: %s", ev.Type, string(ev.Payload))
}
