// Package client is the Go client for the campaign room: a REST client
// with typed error classification, the live session transport, and the
// room controller that ties them together for one open campaign room.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/aethoria/campaign-backend/internal/encounter"
)

// Kind classifies an API failure. Callers branch on this, never on the
// message text.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindNetwork      Kind = "network"
	KindUnknown      Kind = "unknown"
)

type APIError struct {
	Kind    Kind
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrorKind extracts the classification from any error returned by this
// package.
func ErrorKind(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

type CampaignDetail struct {
	ID       uint             `json:"id"`
	Name     string           `json:"name"`
	DMUserID string           `json:"dm_user_id"`
	Members  []CampaignMember `json:"members"`
}

type CampaignMember struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

type Monster struct {
	Name            string `json:"name"`
	ChallengeRating string `json:"challenge_rating"`
	HitPoints       int    `json:"hit_points"`
	ArmorClass      int    `json:"armor_class"`
}

type CharacterSheet struct {
	ID           uint   `json:"id"`
	CampaignID   uint   `json:"campaign_id"`
	OwnerUserID  string `json:"owner_user_id"`
	Name         string `json:"name"`
	Race         string `json:"race"`
	Class        string `json:"class"`
	Level        int    `json:"level"`
	MaxHP        int    `json:"max_hp"`
	ArmorClass   int    `json:"armor_class"`
	Strength     int    `json:"strength"`
	Dexterity    int    `json:"dexterity"`
	Constitution int    `json:"constitution"`
	Intelligence int    `json:"intelligence"`
	Wisdom       int    `json:"wisdom"`
	Charisma     int    `json:"charisma"`
}

// API is the REST client for the campaign service.
type API struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{},
	}
}

func (a *API) Campaign(ctx context.Context, campaignID string) (*CampaignDetail, error) {
	var c CampaignDetail
	if err := a.do(ctx, http.MethodGet, "/api/campaigns/"+campaignID, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *API) Characters(ctx context.Context, campaignID string) ([]CharacterSheet, error) {
	var chars []CharacterSheet
	if err := a.do(ctx, http.MethodGet, "/api/campaigns/"+campaignID+"/characters", &chars); err != nil {
		return nil, err
	}
	return chars, nil
}

func (a *API) Character(ctx context.Context, characterID uint) (*CharacterSheet, error) {
	var c CharacterSheet
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/characters/%d", characterID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *API) Monsters(ctx context.Context) ([]Monster, error) {
	var monsters []Monster
	if err := a.do(ctx, http.MethodGet, "/api/monsters", &monsters); err != nil {
		return nil, err
	}
	return monsters, nil
}

func (a *API) Session(ctx context.Context, campaignID string) (*encounter.State, error) {
	var st encounter.State
	if err := a.do(ctx, http.MethodGet, "/api/campaigns/"+campaignID+"/session", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (a *API) StartSession(ctx context.Context, campaignID string) (*encounter.State, error) {
	var st encounter.State
	if err := a.do(ctx, http.MethodPost, "/api/campaigns/"+campaignID+"/session", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (a *API) do(ctx context.Context, method, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, nil)
	if err != nil {
		return &APIError{Kind: KindUnknown, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpc.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &APIError{Kind: KindUnknown, Message: fmt.Sprintf("decode response: %v", err), Status: resp.StatusCode}
	}
	return nil
}

// decodeError prefers the server's typed kind and falls back to the status
// code when the body isn't ours.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	kind := Kind(body.Kind)
	switch kind {
	case KindUnauthorized, KindForbidden, KindNotFound, KindValidation, KindUnknown:
	default:
		kind = kindFromStatus(resp.StatusCode)
	}
	message := body.Error
	if message == "" {
		message = resp.Status
	}
	return &APIError{Kind: kind, Message: message, Status: resp.StatusCode}
}

func kindFromStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest:
		return KindValidation
	default:
		return KindUnknown
	}
}
