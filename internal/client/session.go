package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/aethoria/campaign-backend/internal/encounter"
	"github.com/aethoria/campaign-backend/internal/protocol"
)

var ErrMissingCredentials = errors.New("campaign id and token are both required")

const sendTimeout = 3 * time.Second

// Session owns one live connection to a campaign room. Inbound events
// either mutate the encounter projection (encounter_update replaces it
// wholesale, turn_update patches the turn pointer) or are appended to the
// chat log in arrival order. There is no reconnect and no outbound queue:
// a send while disconnected is logged and dropped.
type Session struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	encounter *encounter.State
	log       []protocol.Event
	logger    *zap.Logger
	cancel    context.CancelFunc
}

// Dial opens the room connection. Without both a campaign id and a token no
// connection is attempted. The token rides the query string, URL-encoded.
func Dial(ctx context.Context, wsBaseURL, campaignID, token string, logger *zap.Logger) (*Session, error) {
	if campaignID == "" || token == "" {
		return nil, ErrMissingCredentials
	}

	endpoint := fmt.Sprintf("%s/ws/campaigns/%s?token=%s", wsBaseURL, campaignID, url.QueryEscape(token))
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial room: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:      conn,
		connected: true,
		logger:    logger,
		cancel:    cancel,
	}
	go s.readLoop(readCtx)
	return s, nil
}

func (s *Session) readLoop(ctx context.Context) {
	defer s.markDisconnected()
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				s.logger.Warn("room connection closed", zap.Error(err))
			}
			return
		}
		s.handle(data)
	}
}

// handle processes one raw inbound message. Malformed payloads are logged
// and dropped; they never tear down the session.
func (s *Session) handle(data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		s.logger.Warn("dropping malformed event", zap.Error(err))
		return
	}
	s.dispatch(ev)
}

func (s *Session) dispatch(ev protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case protocol.TypeEncounterUpdate:
		var st encounter.State
		if err := ev.DecodePayload(&st); err != nil {
			s.logger.Warn("dropping malformed encounter_update", zap.Error(err))
			return
		}
		s.encounter = &st

	case protocol.TypeTurnUpdate:
		if s.encounter == nil || !s.encounter.Active {
			// No encounter to patch yet.
			return
		}
		var p protocol.TurnUpdatePayload
		if err := ev.DecodePayload(&p); err != nil {
			s.logger.Warn("dropping malformed turn_update", zap.Error(err))
			return
		}
		patched := encounter.PatchTurn(*s.encounter, p.ActiveEntryID, p.TurnIndex)
		s.encounter = &patched

	default:
		s.log = append(s.log, ev)
	}
}

// Send serializes {type, payload} and transmits it if the connection is
// open. Otherwise the message is logged and dropped; it never errors and
// never touches the chat log.
func (s *Session) Send(typ string, payload any) {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()

	if !connected {
		s.logger.Warn("send while disconnected, dropping", zap.String("type", typ))
		return
	}

	ev, err := protocol.NewEvent(typ, payload)
	if err != nil {
		s.logger.Warn("send failed", zap.String("type", typ), zap.Error(err))
		return
	}
	data, err := ev.Encode()
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Warn("send failed", zap.String("type", typ), zap.Error(err))
	}
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Encounter returns the current projection; ok is false before the first
// encounter_update arrives.
func (s *Session) Encounter() (encounter.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.encounter == nil {
		return encounter.State{}, false
	}
	return *s.encounter, true
}

// ChatLog returns a copy of the log in arrival order.
func (s *Session) ChatLog() []protocol.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Event(nil), s.log...)
}

func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	s.markDisconnected()
	if s.cancel != nil {
		s.cancel()
	}
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "bye")
}

func (s *Session) markDisconnected() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}
