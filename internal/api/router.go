package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/cinnamon-core/internal/auth"
	"github.com/nerrad567/cinnamon-core/internal/panel"
)

// panelPrefix is where the operator console is mounted.
const panelPrefix = "/panel"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Get("/sequence/stages", s.handleGetStages)
		r.Get("/sequence/runs", s.handleListRuns)
		r.Get("/sequence/runs/{id}", s.handleGetRun)
		r.Get("/motion/outcomes", s.handleListOutcomes)
		r.Get("/motion/outcomes/{id}", s.handleGetOutcome)
		r.Get("/audit", s.handleListActions)

		r.Get("/ws", s.handleWebSocket)

		// Mutating routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware(auth.PermExperienceOperate))
			r.Use(s.auditMiddleware)

			r.Post("/entry/start", s.handleStartEntry)
			r.Post("/sequence/start", s.handleStartSequence)
			r.Post("/sequence/stop", s.handleStopSequence)
			r.Put("/sequence/stages", s.handleReplaceStages)
			r.Post("/motion/window", s.handleBeginWindow)
			r.Post("/motion/window/close", s.handleCloseWindow)
			r.Post("/materials/{id}/fade", s.handleFadeMaterial)
			r.Post("/scenes/next", s.handleNextScene)
			r.Post("/scenes/load", s.handleLoadScene)
			r.Post("/scenes/menu", s.handleMainMenu)
			r.Post("/scenes/quit", s.handleQuit)
		})
	})

	if s.cfg.Panel.Enabled {
		r.Get(panelPrefix, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, panelPrefix+"/", http.StatusMovedPermanently)
		})
		r.Handle(panelPrefix+"/*", panel.Handler(panelPrefix, s.cfg.Panel.Dir))
	}

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
