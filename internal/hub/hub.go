package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/aethoria/campaign-backend/internal/events"
	"github.com/aethoria/campaign-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom returns the room for a campaign, creating it if the session
// has not started yet.
type EnsureRoom struct {
	CampaignID string
	Reply      chan *room.Room
}

// GetRoom returns the room for a campaign, or nil when no session is live.
type GetRoom struct {
	CampaignID string
	Reply      chan *room.Room
}

type RemoveRoom struct {
	CampaignID string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub owns one room per campaign with a live session. All access goes
// through the inbox so the room map needs no lock.
type Hub struct {
	inbox     chan HubMsg
	rooms     map[string]*room.Room
	publisher events.Publisher
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewHub(parent context.Context, publisher events.Publisher, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:     make(chan HubMsg, 64),
		rooms:     make(map[string]*room.Room),
		publisher: publisher,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if rm := h.rooms[msg.CampaignID]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm := room.NewRoom(h.ctx, msg.CampaignID, h.publisher, h.logger)
				h.rooms[msg.CampaignID] = rm
				h.logger.Info("session started", zap.String("campaign_id", msg.CampaignID))
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.CampaignID] // may be nil

			case RemoveRoom:
				if rm := h.rooms[msg.CampaignID]; rm != nil {
					rm.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.CampaignID)
				}

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

// Ensure is a convenience wrapper around the EnsureRoom message.
func (h *Hub) Ensure(campaignID string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- EnsureRoom{CampaignID: campaignID, Reply: reply}
	return <-reply
}

// Get is a convenience wrapper around the GetRoom message.
func (h *Hub) Get(campaignID string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- GetRoom{CampaignID: campaignID, Reply: reply}
	return <-reply
}
