package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, d Deps) {
	t := d.Tracker

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("CornerQuest API", "/openapi.json", "/docs"))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Get("/api/stations", handleListStations(t))
	r.Get("/api/stations/{stationID}", handleGetStation(t))
	r.Get("/api/policy", handlePolicy(t))
	r.Get("/api/groups", handleLeaderboard(t))

	r.Route("/api/groups/{groupID}", func(r chi.Router) {
		r.Use(groupMiddleware(t.Catalog()))

		r.Get("/progress", handleGetProgress(t))
		r.Get("/route", handleRoute(t))
		r.Get("/scores", handleListScores(t))
		r.Get("/scores/{stationID}", handleGetScore(t))
		r.Get("/audit", handleAudit(t))
		r.Get("/events", handleEvents(d.Broker))

		// Writes, guarded by the scorer code when one is configured.
		r.Group(func(r chi.Router) {
			r.Use(scorerMiddleware(d.ScorerCodeHash))
			r.Post("/progress", handleOverwriteProgress(t, d.Metrics))
			r.Put("/progress/complete", handleCompleteStation(t, d.Metrics))
			r.Post("/outcome", handleRecordOutcome(t, d.Metrics))
			r.Post("/scores", handleSubmitScore(t, d.Metrics))
			r.Put("/scores/{stationID}", handleCorrectScore(t, d.Metrics))
			r.Post("/resync", handleResync(t, d.Metrics))
		})
	})

	r.With(groupMiddleware(t.Catalog())).Get("/ws/groups/{groupID}", handleProgressFeed(d.Broker, d.Logger))

	if d.Static != nil {
		r.NotFound(handleStatic(d.Static))
	}
}
