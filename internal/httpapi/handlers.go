package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aethoria/campaign-backend/internal/auth"
	"github.com/aethoria/campaign-backend/internal/hub"
	"github.com/aethoria/campaign-backend/internal/storage"
)

// Store is the slice of the database the API needs. Satisfied by
// *storage.Store; tests swap in a fake.
type Store interface {
	Campaign(ctx context.Context, id uint) (*storage.Campaign, error)
	CampaignCharacters(ctx context.Context, campaignID uint) ([]storage.Character, error)
	Character(ctx context.Context, id uint) (*storage.Character, error)
	Monsters(ctx context.Context) ([]storage.Monster, error)
	IsMember(ctx context.Context, campaignID uint, userID string) (bool, error)
}

type Handlers struct {
	store    Store
	hub      *hub.Hub
	verifier *auth.Verifier
	logger   *zap.Logger
}

func NewHandlers(store Store, h *hub.Hub, verifier *auth.Verifier, logger *zap.Logger) *Handlers {
	return &Handlers{store: store, hub: h, verifier: verifier, logger: logger}
}

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate validates the bearer token and stashes the claims in the
// request context.
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.verifier.Validate(auth.ExtractToken(r))
		if err != nil {
			writeError(w, KindUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func campaignIDParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "campaignID"), 10, 32)
	return uint(id), err == nil
}

// GetCampaign returns campaign detail for members; everyone else gets a 403.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignIDParam(r)
	if !ok {
		writeError(w, KindValidation, "campaign id must be numeric")
		return
	}
	claims := claimsFrom(r.Context())

	campaign, err := h.store.Campaign(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, KindNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("campaign lookup failed", zap.Uint("campaign_id", id), zap.Error(err))
		writeError(w, KindUnknown, "campaign lookup failed")
		return
	}
	if !memberOf(campaign, claims.Subject) {
		writeError(w, KindForbidden, "not a member of this campaign")
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *Handlers) ListCampaignCharacters(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignIDParam(r)
	if !ok {
		writeError(w, KindValidation, "campaign id must be numeric")
		return
	}
	claims := claimsFrom(r.Context())
	member, err := h.store.IsMember(r.Context(), id, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, KindNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("membership check failed", zap.Uint("campaign_id", id), zap.Error(err))
		writeError(w, KindUnknown, "membership check failed")
		return
	}
	if !member {
		writeError(w, KindForbidden, "not a member of this campaign")
		return
	}
	chars, err := h.store.CampaignCharacters(r.Context(), id)
	if err != nil {
		h.logger.Error("character list failed", zap.Uint("campaign_id", id), zap.Error(err))
		writeError(w, KindUnknown, "character list failed")
		return
	}
	writeJSON(w, http.StatusOK, chars)
}

// GetCharacter serves a full sheet: the DM inspect flow and owners use it.
func (h *Handlers) GetCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "characterID"), 10, 32)
	if err != nil {
		writeError(w, KindValidation, "character id must be numeric")
		return
	}
	char, err := h.store.Character(r.Context(), uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, KindNotFound, "character not found")
		return
	}
	if err != nil {
		h.logger.Error("character lookup failed", zap.Uint64("character_id", id), zap.Error(err))
		writeError(w, KindUnknown, "character lookup failed")
		return
	}
	claims := claimsFrom(r.Context())
	campaign, err := h.store.Campaign(r.Context(), char.CampaignID)
	if err != nil {
		writeError(w, KindUnknown, "campaign lookup failed")
		return
	}
	if campaign.DMUserID != claims.Subject && char.OwnerUserID != claims.Subject {
		writeError(w, KindForbidden, "only the DM or the owner may view this sheet")
		return
	}
	writeJSON(w, http.StatusOK, char)
}

func (h *Handlers) ListMonsters(w http.ResponseWriter, r *http.Request) {
	monsters, err := h.store.Monsters(r.Context())
	if err != nil {
		h.logger.Error("monster list failed", zap.Error(err))
		writeError(w, KindUnknown, "monster list failed")
		return
	}
	writeJSON(w, http.StatusOK, monsters)
}

// GetSession returns the live encounter state, 404 when no session is open.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignIDParam(r)
	if !ok {
		writeError(w, KindValidation, "campaign id must be numeric")
		return
	}
	claims := claimsFrom(r.Context())
	member, err := h.store.IsMember(r.Context(), id, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, KindNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("membership check failed", zap.Uint("campaign_id", id), zap.Error(err))
		writeError(w, KindUnknown, "membership check failed")
		return
	}
	if !member {
		writeError(w, KindForbidden, "not a member of this campaign")
		return
	}
	rm := h.hub.Get(chi.URLParam(r, "campaignID"))
	if rm == nil {
		writeError(w, KindNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, rm.Encounter())
}

// StartSession opens the campaign room. DM only; idempotent, so a second
// call returns the already-running session's state.
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignIDParam(r)
	if !ok {
		writeError(w, KindValidation, "campaign id must be numeric")
		return
	}
	claims := claimsFrom(r.Context())
	campaign, err := h.store.Campaign(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, KindNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("campaign lookup failed", zap.Uint("campaign_id", id), zap.Error(err))
		writeError(w, KindUnknown, "campaign lookup failed")
		return
	}
	if campaign.DMUserID != claims.Subject {
		writeError(w, KindForbidden, "only the DM can start a session")
		return
	}
	rm := h.hub.Ensure(chi.URLParam(r, "campaignID"))
	writeJSON(w, http.StatusCreated, rm.Encounter())
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func memberOf(c *storage.Campaign, userID string) bool {
	if c.DMUserID == userID {
		return true
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
