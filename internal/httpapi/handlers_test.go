package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aethoria/campaign-backend/internal/auth"
	"github.com/aethoria/campaign-backend/internal/encounter"
	"github.com/aethoria/campaign-backend/internal/events"
	"github.com/aethoria/campaign-backend/internal/hub"
	"github.com/aethoria/campaign-backend/internal/storage"
	"github.com/aethoria/campaign-backend/internal/ws"
)

type fakeStore struct {
	campaigns  map[uint]*storage.Campaign
	characters map[uint]*storage.Character
	monsters   []storage.Monster
}

func (f *fakeStore) Campaign(_ context.Context, id uint) (*storage.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %d: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (f *fakeStore) CampaignCharacters(_ context.Context, campaignID uint) ([]storage.Character, error) {
	var out []storage.Character
	for _, c := range f.characters {
		if c.CampaignID == campaignID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) Character(_ context.Context, id uint) (*storage.Character, error) {
	c, ok := f.characters[id]
	if !ok {
		return nil, fmt.Errorf("character %d: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (f *fakeStore) Monsters(context.Context) ([]storage.Monster, error) {
	return f.monsters, nil
}

func (f *fakeStore) IsMember(_ context.Context, campaignID uint, userID string) (bool, error) {
	c, ok := f.campaigns[campaignID]
	if !ok {
		return false, fmt.Errorf("campaign %d: %w", campaignID, storage.ErrNotFound)
	}
	if c.DMUserID == userID {
		return true, nil
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type testEnv struct {
	srv      *httptest.Server
	verifier *auth.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := &fakeStore{
		campaigns: map[uint]*storage.Campaign{
			42: {
				ID:       42,
				Name:     "Aethoria",
				DMUserID: "u-dm",
				Members: []storage.CampaignMember{
					{CampaignID: 42, UserID: "u-player", UserName: "alice"},
				},
			},
		},
		characters: map[uint]*storage.Character{
			7: {ID: 7, CampaignID: 42, OwnerUserID: "u-player", Name: "Aria", Class: "Ranger", Level: 5},
		},
		monsters: []storage.Monster{{Name: "Goblin", ChallengeRating: "1/4", HitPoints: 7, ArmorClass: 15}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zap.NewNop()
	verifier := auth.NewVerifier("test-secret")
	h := hub.NewHub(ctx, events.NopPublisher{}, logger)
	handlers := NewHandlers(store, h, verifier, logger)
	wsHandler := ws.NewHandler(h, store, verifier, logger)

	srv := httptest.NewServer(SetupRoutes(handlers, wsHandler))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, verifier: verifier}
}

func (e *testEnv) request(t *testing.T, method, path, userID, name string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	require.NoError(t, err)
	if userID != "" {
		token, err := e.verifier.Sign(userID, name, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeErrorResponse(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	defer resp.Body.Close()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestAPI_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/campaigns/42", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, KindUnauthorized, decodeErrorResponse(t, resp).Kind)
}

func TestGetCampaign(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/campaigns/42", "u-player", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var campaign storage.Campaign
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&campaign))
	assert.Equal(t, "Aethoria", campaign.Name)
	assert.Equal(t, "u-dm", campaign.DMUserID)
}

func TestGetCampaign_NonMemberForbidden(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/campaigns/42", "u-stranger", "mallory")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, KindForbidden, decodeErrorResponse(t, resp).Kind)
}

func TestGetCampaign_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/campaigns/99", "u-dm", "Dana")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, KindNotFound, decodeErrorResponse(t, resp).Kind)
}

func TestGetCampaign_BadID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/campaigns/abc", "u-dm", "Dana")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, KindValidation, decodeErrorResponse(t, resp).Kind)
}

func TestListCampaignCharacters_MembersOnly(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/campaigns/42/characters", "u-player", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chars []storage.Character
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chars))
	resp.Body.Close()
	require.Len(t, chars, 1)
	assert.Equal(t, "Aria", chars[0].Name)

	resp = env.request(t, http.MethodGet, "/api/campaigns/42/characters", "u-stranger", "mallory")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, KindForbidden, decodeErrorResponse(t, resp).Kind)
}

func TestGetSession_MembersOnly(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/campaigns/42/session", "u-dm", "Dana")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, http.MethodGet, "/api/campaigns/42/session", "u-stranger", "mallory")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, KindForbidden, decodeErrorResponse(t, resp).Kind)
}

func TestGetCharacter_DMAndOwnerOnly(t *testing.T) {
	env := newTestEnv(t)

	for _, userID := range []string{"u-dm", "u-player"} {
		resp := env.request(t, http.MethodGet, "/api/characters/7", userID, userID)
		require.Equal(t, http.StatusOK, resp.StatusCode, userID)
		var sheet storage.Character
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&sheet))
		resp.Body.Close()
		assert.Equal(t, "Aria", sheet.Name)
	}

	resp := env.request(t, http.MethodGet, "/api/characters/7", "u-stranger", "mallory")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListMonsters(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/monsters", "u-player", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var monsters []storage.Monster
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&monsters))
	require.Len(t, monsters, 1)
	assert.Equal(t, "Goblin", monsters[0].Name)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// No session yet.
	resp := env.request(t, http.MethodGet, "/api/campaigns/42/session", "u-dm", "Dana")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, KindNotFound, decodeErrorResponse(t, resp).Kind)

	// Players cannot start one.
	resp = env.request(t, http.MethodPost, "/api/campaigns/42/session", "u-player", "alice")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// The DM can; the fresh session has no active encounter.
	resp = env.request(t, http.MethodPost, "/api/campaigns/42/session", "u-dm", "Dana")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var st encounter.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.False(t, st.Active)

	// Starting again is idempotent.
	resp = env.request(t, http.MethodPost, "/api/campaigns/42/session", "u-dm", "Dana")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// And now the session is fetchable by members.
	resp = env.request(t, http.MethodGet, "/api/campaigns/42/session", "u-player", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.False(t, st.Active)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
