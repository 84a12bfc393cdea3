package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aethoria/campaign-backend/internal/ws"
)

func SetupRoutes(h *Handlers, wsHandler *ws.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Authenticate)
		r.Get("/campaigns/{campaignID}", h.GetCampaign)
		r.Get("/campaigns/{campaignID}/characters", h.ListCampaignCharacters)
		r.Get("/campaigns/{campaignID}/session", h.GetSession)
		r.Post("/campaigns/{campaignID}/session", h.StartSession)
		r.Get("/characters/{characterID}", h.GetCharacter)
		r.Get("/monsters", h.ListMonsters)
	})

	// Websocket upgrade does its own auth: the token rides the query string.
	r.Get("/ws/campaigns/{campaignID}", wsHandler.ServeHTTP)

	return r
}
