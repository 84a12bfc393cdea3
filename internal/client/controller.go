package client

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aethoria/campaign-backend/internal/encounter"
	"github.com/aethoria/campaign-backend/internal/protocol"
	"github.com/aethoria/campaign-backend/internal/roster"
)

var ErrNotDM = errors.New("only the DM can do that")
var ErrNotLoaded = errors.New("room not loaded")

// Controller owns all data for one open campaign room and wires user
// actions to the session transport. One instance per open room.
type Controller struct {
	api       *API
	wsBaseURL string
	token     string
	userID    string
	logger    *zap.Logger

	campaignID string
	campaign   *CampaignDetail
	monsters   []Monster
	session    *Session
	roster     *roster.Builder
}

func NewController(api *API, wsBaseURL, userID, token string, logger *zap.Logger) *Controller {
	return &Controller{
		api:       api,
		wsBaseURL: strings.TrimRight(wsBaseURL, "/"),
		token:     token,
		userID:    userID,
		logger:    logger,
		roster:    roster.NewBuilder(),
	}
}

// Load fetches campaign detail, the monster reference list, and any active
// session state concurrently. If no session is live and the viewer is the
// DM, one is started. An unauthorized result comes back as an *APIError
// with KindUnauthorized; the caller decides to redirect.
func (c *Controller) Load(ctx context.Context, campaignID string) error {
	g, gctx := errgroup.WithContext(ctx)

	var (
		campaign *CampaignDetail
		monsters []Monster
		sess     *encounter.State
	)

	g.Go(func() error {
		var err error
		campaign, err = c.api.Campaign(gctx, campaignID)
		return err
	})
	g.Go(func() error {
		var err error
		monsters, err = c.api.Monsters(gctx)
		return err
	})
	g.Go(func() error {
		st, err := c.api.Session(gctx, campaignID)
		if ErrorKind(err) == KindNotFound {
			return nil // no session yet
		}
		if err != nil {
			return err
		}
		sess = st
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	c.campaignID = campaignID
	c.campaign = campaign
	c.monsters = monsters

	if sess == nil && c.IsDM() {
		if _, err := c.api.StartSession(ctx, campaignID); err != nil {
			return err
		}
	}
	return nil
}

// Connect opens the live session transport, closing any previous one first.
// Load must have succeeded before the first call.
func (c *Controller) Connect(ctx context.Context) error {
	if c.campaign == nil {
		return ErrNotLoaded
	}
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
	}
	s, err := Dial(ctx, c.wsBaseURL, c.campaignID, c.token, c.logger)
	if err != nil {
		return err
	}
	c.session = s
	return nil
}

// IsDM reports whether the viewer owns this campaign.
func (c *Controller) IsDM() bool {
	return c.campaign != nil && c.campaign.DMUserID == c.userID
}

func (c *Controller) Campaign() *CampaignDetail { return c.campaign }
func (c *Controller) Monsters() []Monster       { return c.monsters }

func (c *Controller) IsConnected() bool {
	return c.session != nil && c.session.IsConnected()
}

// SendChat forwards a chat line. Blank input is a no-op, as is sending
// before the transport is up.
func (c *Controller) SendChat(text, characterName string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if !c.IsConnected() {
		return
	}
	c.session.Send(protocol.TypeChat, protocol.ChatPayload{Text: text, CharacterName: characterName})
}

// RollDice requests a roll. The outcome is not computed here; the server
// rolls and echoes the result back as a dice_roll log entry.
func (c *Controller) RollDice(sides, count int, characterName string) {
	if !c.IsConnected() {
		return
	}
	c.session.Send(protocol.TypeDiceRoll, protocol.DiceRollPayload{
		Sides:         sides,
		Count:         count,
		CharacterName: characterName,
	})
}

// AddCharacterToRoster puts a campaign character on the working roster.
// rollInput is the raw initiative text from the setup form.
func (c *Controller) AddCharacterToRoster(characterID uint, name, rollInput string) error {
	roll, err := roster.ParseRoll(rollInput)
	if err != nil {
		return err
	}
	return c.roster.Add(roster.CharacterID(characterID), name, roll)
}

// AddMonsterToRoster puts a compendium monster on the working roster and
// returns the id it got, disambiguated when the species repeats.
func (c *Controller) AddMonsterToRoster(name, rollInput string) (string, error) {
	roll, err := roster.ParseRoll(rollInput)
	if err != nil {
		return "", err
	}
	return c.roster.AddMonster(name, roll)
}

func (c *Controller) RosterSize() int { return c.roster.Len() }

func (c *Controller) ResetRoster() { c.roster.Reset() }

// BeginEncounter validates the working roster, sends it, and clears it for
// the next setup. The resulting encounter_update comes back over the
// session.
func (c *Controller) BeginEncounter() error {
	if !c.IsDM() {
		return ErrNotDM
	}
	entries, err := c.roster.Build()
	if err != nil {
		return err
	}
	if err := c.StartEncounter(entries); err != nil {
		return err
	}
	c.roster.Reset()
	return nil
}

// StartEncounter sends an assembled roster. Fire and forget; the resulting
// encounter_update comes back over the session.
func (c *Controller) StartEncounter(entries []encounter.InitiativeEntry) error {
	if !c.IsDM() {
		return ErrNotDM
	}
	if !c.IsConnected() {
		return nil
	}
	c.session.Send(protocol.TypeStartEncounter, entries)
	return nil
}

func (c *Controller) NextTurn() error {
	if !c.IsDM() {
		return ErrNotDM
	}
	if !c.IsConnected() {
		return nil
	}
	c.session.Send(protocol.TypeNextTurn, struct{}{})
	return nil
}

func (c *Controller) EndEncounter() error {
	if !c.IsDM() {
		return ErrNotDM
	}
	if !c.IsConnected() {
		return nil
	}
	c.session.Send(protocol.TypeEndEncounter, struct{}{})
	return nil
}

// InspectCharacter fetches one character's full sheet on demand (DM only).
func (c *Controller) InspectCharacter(ctx context.Context, characterID uint) (*CharacterSheet, error) {
	if !c.IsDM() {
		return nil, ErrNotDM
	}
	return c.api.Character(ctx, characterID)
}

// ChatLog is the room log in arrival order.
func (c *Controller) ChatLog() []protocol.Event {
	if c.session == nil {
		return nil
	}
	return c.session.ChatLog()
}

// InitiativeEntries is derived from the encounter state on every call:
// entries when a combat is active, nothing otherwise.
func (c *Controller) InitiativeEntries() []encounter.InitiativeEntry {
	if c.session == nil {
		return nil
	}
	st, ok := c.session.Encounter()
	if !ok || !st.Active {
		return nil
	}
	return st.Entries
}

// ActiveEntryID is the combatant whose turn it is, empty outside combat.
func (c *Controller) ActiveEntryID() string {
	if c.session == nil {
		return ""
	}
	st, ok := c.session.Encounter()
	if !ok || !st.Active {
		return ""
	}
	return st.ActiveEntryID
}

// Close tears the room down. The live connection is closed; in-flight HTTP
// requests are left to finish and be discarded.
func (c *Controller) Close() {
	if c.session != nil {
		_ = c.session.Close()
	}
}
