package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/handler/health"
	"github.com/playperu/cluegame/internal/store"
)

// Deps are the collaborators the HTTP API is built on.
type Deps struct {
	Clues        ClueStore
	Participants *store.Participants
	Ledger       *store.Ledger
	Admins       *store.Admins
	Sessions     *Sessions
	Broker       *Broker
	Snapshots    cluegame.SessionStore
	Checks       map[string]health.Checker
}

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Clue Game API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, d.Checks).Routes())

	// Collaborator API used by remote engines.
	r.Get("/api/clues", handleGetClues(d.Clues))
	r.Get("/api/participants/{name}/check", handleCheckParticipant(d.Participants))
	r.Post("/api/attempts", handleRecordAttempt(d.Ledger, logger))
	r.Get("/api/attempts", handleListAttempts(d.Ledger))

	// Server-hosted games.
	r.Post("/api/game/start", handleGameStart(d.Sessions, logger))
	r.Get("/api/game/last/{name}", handleLastSession(d.Snapshots))
	r.Group(func(r chi.Router) {
		r.Use(gameAuthMiddleware(d.Sessions))
		r.Get("/api/game/state", handleGameState())
		r.Post("/api/game/guess", handleGameGuess(d.Broker, logger))
		r.Delete("/api/game", handleGameAbandon(d.Sessions))
		r.Get("/api/game/events", handleEvents(d.Broker))
		r.Get("/api/game/ws", handleWSEvents(d.Broker, logger))
	})

	r.Post("/api/admin/login", handleAdminLogin(d.Admins))
	r.Post("/api/admin/logout", handleAdminLogout(d.Admins))
	r.Get("/api/admin/me", handleAdminMe(d.Admins))

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(d.Admins))
		r.Get("/clues", handleGetClues(d.Clues))
		r.Put("/clues", handleAdminPutClues(d.Clues))
		r.Get("/participants", handleAdminListParticipants(d.Participants))
		r.Post("/participants", handleAdminAddParticipant(d.Participants))
		r.Delete("/participants/{name}", handleAdminRemoveParticipant(d.Participants))
	})
}
