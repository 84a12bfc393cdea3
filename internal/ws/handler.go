package ws

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aethoria/campaign-backend/internal/auth"
	"github.com/aethoria/campaign-backend/internal/hub"
	"github.com/aethoria/campaign-backend/internal/protocol"
	"github.com/aethoria/campaign-backend/internal/room"
	"github.com/aethoria/campaign-backend/internal/storage"
)

const writeTimeout = 3 * time.Second

// CampaignSource is the storage slice the websocket edge needs to authorize
// a join.
type CampaignSource interface {
	Campaign(ctx context.Context, id uint) (*storage.Campaign, error)
	IsMember(ctx context.Context, campaignID uint, userID string) (bool, error)
}

type Handler struct {
	hub      *hub.Hub
	store    CampaignSource
	verifier *auth.Verifier
	logger   *zap.Logger
}

func NewHandler(h *hub.Hub, store CampaignSource, verifier *auth.Verifier, logger *zap.Logger) *Handler {
	return &Handler{hub: h, store: store, verifier: verifier, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	campaignKey := chi.URLParam(r, "campaignID")
	campaignID, err := strconv.ParseUint(campaignKey, 10, 32)
	if err != nil {
		http.Error(w, "campaign id must be numeric", http.StatusBadRequest)
		return
	}

	claims, err := h.verifier.Validate(auth.ExtractToken(r))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	campaign, err := h.store.Campaign(r.Context(), uint(campaignID))
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "campaign not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "campaign lookup failed", http.StatusInternalServerError)
		return
	}
	member, err := h.store.IsMember(r.Context(), uint(campaignID), claims.Subject)
	if err != nil || !member {
		http.Error(w, "not a member of this campaign", http.StatusForbidden)
		return
	}

	rm := h.hub.Get(campaignKey)
	if rm == nil {
		http.Error(w, "session not started", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	isDM := campaign.DMUserID == claims.Subject
	clientID := randID(6)
	out := make(chan protocol.Event, 32)
	reply := make(chan room.Snapshot, 1)

	rm.Inbox() <- room.Join{
		ClientID: clientID,
		UserID:   claims.Subject,
		Name:     claims.DisplayName,
		Outbox:   out,
		Reply:    reply,
	}
	defer func() {
		rm.Inbox() <- room.Leave{ClientID: clientID, UserID: claims.Subject, Name: claims.DisplayName}
	}()

	h.logger.Info("room joined",
		zap.String("campaign_id", campaignKey),
		zap.String("user_id", claims.Subject),
		zap.Bool("is_dm", isDM))

	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()

	// Writer goroutine: snapshot first, then the live stream. The room
	// closes the outbox when this client leaves or is evicted; closing the
	// conn here kicks the reader loop out as well.
	go func() {
		snap := <-reply
		for _, ev := range snap.Log {
			writeEvent(writeCtx, conn, ev)
		}
		if stateEv, err := protocol.NewEvent(protocol.TypeEncounterUpdate, snap.Encounter); err == nil {
			writeEvent(writeCtx, conn, stateEv)
		}
		for ev := range out {
			writeEvent(writeCtx, conn, ev)
		}
		conn.Close(websocket.StatusPolicyViolation, "evicted")
	}()

	// Reader loop.
	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			// Abrupt close; room.Leave in defer.
			return
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			h.logger.Debug("dropping malformed event",
				zap.String("campaign_id", campaignKey),
				zap.String("user_id", claims.Subject),
				zap.Error(err))
			if errEv, encErr := protocol.NewEvent(protocol.TypeError, protocol.ErrorPayload{Message: "bad json"}); encErr == nil {
				writeEvent(r.Context(), conn, errEv)
			}
			continue
		}

		rm.Inbox() <- room.FromClient{
			ClientID: clientID,
			UserID:   claims.Subject,
			Name:     claims.DisplayName,
			IsDM:     isDM,
			Event:    ev,
		}
	}
}

func writeEvent(parent context.Context, conn *websocket.Conn, ev protocol.Event) {
	payload, err := ev.Encode()
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	_ = conn.Write(ctx, websocket.MessageText, payload)
	cancel()
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
