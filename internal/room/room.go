package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aethoria/campaign-backend/internal/dice"
	"github.com/aethoria/campaign-backend/internal/encounter"
	"github.com/aethoria/campaign-backend/internal/events"
	"github.com/aethoria/campaign-backend/internal/protocol"
)

type Msg interface{ isRoomMsg() }

// Join registers a client connection. The room replies with a snapshot of
// the current encounter state and chat log, then streams events to Outbox.
type Join struct {
	ClientID string
	UserID   string
	Name     string
	Outbox   chan protocol.Event
	Reply    chan Snapshot
}

func (Join) isRoomMsg() {}

type Leave struct {
	ClientID string
	UserID   string
	Name     string
}

func (Leave) isRoomMsg() {}

// FromClient carries one decoded event off a client connection.
type FromClient struct {
	ClientID string
	UserID   string
	Name     string
	IsDM     bool
	Event    protocol.Event
}

func (FromClient) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type Snapshot struct {
	Encounter encounter.State
	Log       []protocol.Event
}

// View is a test-only reflection of room internals without data races.
type View struct {
	NumClients int
	Encounter  encounter.State
	LogLen     int
}

// client is one connected member: the outbox plus enough identity to emit
// presence when the room drops them.
type client struct {
	outbox chan protocol.Event
	userID string
	name   string
}

// Room is the actor owning one campaign's live session: the chat log, the
// encounter state, and the set of connected clients. All mutation funnels
// through the inbox.
type Room struct {
	campaignID string
	inbox      chan Msg
	encounter  encounter.State
	log        []protocol.Event
	clients    map[string]*client
	publisher  events.Publisher
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewRoom(parent context.Context, campaignID string, publisher events.Publisher, logger *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		campaignID: campaignID,
		inbox:      make(chan Msg, 64),
		clients:    make(map[string]*client),
		publisher:  publisher,
		logger:     logger.With(zap.String("campaign_id", campaignID)),
		ctx:        ctx,
		cancel:     cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = &client{outbox: msg.Outbox, userID: msg.UserID, name: msg.Name}
				msg.Reply <- Snapshot{Encounter: r.encounter, Log: append([]protocol.Event(nil), r.log...)}
				r.broadcast(presenceEvent(protocol.TypeUserJoin, msg.UserID, msg.Name))

			case Leave:
				cl, ok := r.clients[msg.ClientID]
				if !ok {
					// Already dropped by a slow-client eviction.
					break
				}
				delete(r.clients, msg.ClientID)
				close(cl.outbox)
				r.broadcast(presenceEvent(protocol.TypeUserLeave, msg.UserID, msg.Name))

			case FromClient:
				r.handleClientEvent(msg)

			case GetState:
				msg.Reply <- View{
					NumClients: len(r.clients),
					Encounter:  r.encounter,
					LogLen:     len(r.log),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleClientEvent(msg FromClient) {
	switch msg.Event.Type {
	case protocol.TypeChat:
		var p protocol.ChatPayload
		if err := msg.Event.DecodePayload(&p); err != nil {
			r.sendError(msg.ClientID, "malformed chat payload")
			return
		}
		if p.Text == "" {
			return
		}
		ev, err := protocol.NewEvent(protocol.TypeChat, p)
		if err != nil {
			return
		}
		r.broadcast(stamp(ev, msg.Name))

	case protocol.TypeDiceRoll:
		var p protocol.DiceRollPayload
		if err := msg.Event.DecodePayload(&p); err != nil {
			r.sendError(msg.ClientID, "malformed dice_roll payload")
			return
		}
		rolls, total, err := dice.Roll(p.Sides, p.Count)
		if err != nil {
			r.sendError(msg.ClientID, err.Error())
			return
		}
		p.Rolls = rolls
		p.Total = total
		ev, err := protocol.NewEvent(protocol.TypeDiceRoll, p)
		if err != nil {
			return
		}
		r.broadcast(stamp(ev, msg.Name))

	case protocol.TypeStartEncounter:
		if !msg.IsDM {
			r.sendError(msg.ClientID, "only the DM can start an encounter")
			return
		}
		var entries []encounter.InitiativeEntry
		if err := msg.Event.DecodePayload(&entries); err != nil {
			r.sendError(msg.ClientID, "malformed start_encounter payload")
			return
		}
		r.applyCommand(msg, encounter.Command{Type: encounter.CmdStartEncounter, Roster: entries})

	case protocol.TypeNextTurn:
		if !msg.IsDM {
			r.sendError(msg.ClientID, "only the DM can advance the turn")
			return
		}
		r.applyCommand(msg, encounter.Command{Type: encounter.CmdNextTurn})

	case protocol.TypeEndEncounter:
		if !msg.IsDM {
			r.sendError(msg.ClientID, "only the DM can end an encounter")
			return
		}
		r.applyCommand(msg, encounter.Command{Type: encounter.CmdEndEncounter})

	default:
		// Forward-compatible fallback: relay verbatim as a log entry.
		r.broadcast(stamp(msg.Event, msg.Name))
	}
}

func (r *Room) applyCommand(msg FromClient, cmd encounter.Command) {
	evts, newState, err := encounter.Apply(r.encounter, cmd)
	if err != nil {
		r.sendError(msg.ClientID, err.Error())
		return
	}
	r.encounter = newState
	for _, e := range evts {
		switch e.Type {
		case encounter.EvtEncounterStarted, encounter.EvtEncounterEnded:
			ev, err := protocol.NewEvent(protocol.TypeEncounterUpdate, r.encounter)
			if err != nil {
				continue
			}
			r.broadcast(stamp(ev, msg.Name))
		case encounter.EvtTurnAdvanced:
			ev, err := protocol.NewEvent(protocol.TypeTurnUpdate, protocol.TurnUpdatePayload{
				ActiveEntryID: r.encounter.ActiveEntryID,
				TurnIndex:     r.encounter.TurnIndex,
			})
			if err != nil {
				continue
			}
			r.broadcast(stamp(ev, msg.Name))
		}
	}
}

// broadcast fans an event out to every client, appends loggable events to
// the room log, and mirrors the event to the publisher. Clients with a full
// outbox are dropped, their outbox closed, and a user_leave broadcast for
// them so presence stays consistent.
func (r *Room) broadcast(ev protocol.Event) {
	if protocol.IsLoggable(ev.Type) {
		r.log = append(r.log, ev)
	}
	if err := r.publisher.Publish(r.ctx, r.campaignID, ev); err != nil {
		r.logger.Warn("event mirror publish failed", zap.String("type", ev.Type), zap.Error(err))
	}
	var dropped []*client
	for id, cl := range r.clients {
		select {
		case cl.outbox <- ev:
		default:
			// Client is slow/full - drop them.
			close(cl.outbox)
			delete(r.clients, id)
			dropped = append(dropped, cl)
		}
	}
	for _, cl := range dropped {
		r.broadcast(presenceEvent(protocol.TypeUserLeave, cl.userID, cl.name))
	}
}

func (r *Room) sendError(clientID, message string) {
	cl, ok := r.clients[clientID]
	if !ok {
		return
	}
	ev, err := protocol.NewEvent(protocol.TypeError, protocol.ErrorPayload{Message: message})
	if err != nil {
		return
	}
	ev.Timestamp = time.Now().UnixMilli()
	select {
	case cl.outbox <- ev:
	default:
		close(cl.outbox)
		delete(r.clients, clientID)
		r.broadcast(presenceEvent(protocol.TypeUserLeave, cl.userID, cl.name))
	}
}

func (r *Room) shutdown() {
	for id, cl := range r.clients {
		close(cl.outbox)
		delete(r.clients, id)
	}
	r.cancel()
}

func stamp(ev protocol.Event, sender string) protocol.Event {
	ev.Sender = sender
	ev.Timestamp = time.Now().UnixMilli()
	return ev
}

func presenceEvent(typ, userID, name string) protocol.Event {
	ev, err := protocol.NewEvent(typ, protocol.PresencePayload{UserID: userID, UserName: name})
	if err != nil {
		return protocol.Event{Type: typ}
	}
	return stamp(ev, name)
}

// Encounter returns the current encounter state via the inbox, for callers
// outside the loop (the session REST endpoints). A room that has shut down
// never replies, so both sides of the exchange watch the room context.
func (r *Room) Encounter() encounter.State {
	reply := make(chan View, 1)
	select {
	case r.inbox <- GetState{Reply: reply}:
	case <-r.ctx.Done():
		return encounter.State{}
	}
	select {
	case v := <-reply:
		return v.Encounter
	case <-r.ctx.Done():
		return encounter.State{}
	}
}
