package hub

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/aethoria/campaign-backend/internal/events"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, events.NopPublisher{}, zap.NewNop())
}

func TestHub_EnsureThenGet_SamePointer(t *testing.T) {
	h := newTestHub(t)

	rm1 := h.Ensure("42")
	rm2 := h.Get("42")

	if rm1 == nil || rm2 == nil || rm1 != rm2 {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_EnsureIsIdempotent(t *testing.T) {
	h := newTestHub(t)

	rm1 := h.Ensure("42")
	rm2 := h.Ensure("42")

	if rm1 != rm2 {
		t.Fatalf("second Ensure must return the existing room")
	}
}

func TestHub_GetUnknownCampaignIsNil(t *testing.T) {
	h := newTestHub(t)

	if rm := h.Get("missing"); rm != nil {
		t.Fatalf("expected nil for a campaign with no session")
	}
}

func TestHub_RemoveRoom(t *testing.T) {
	h := newTestHub(t)

	h.Ensure("42")
	h.Inbox() <- RemoveRoom{CampaignID: "42"}

	// Re-ensure after removal creates a fresh room.
	rm := h.Ensure("42")
	if rm == nil {
		t.Fatalf("expected a fresh room after removal")
	}
	if enc := rm.Encounter(); enc.Active {
		t.Fatalf("fresh room must start without an encounter")
	}
}
