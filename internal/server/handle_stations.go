package server

import (
	"net/http"

	"github.com/campday/cornerquest/internal/tracker"
)

func handleListStations(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.Catalog().Stations())
	}
}

func handleGetStation(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := stationParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid station id")
			return
		}
		st, err := t.Catalog().StationByID(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleLeaderboard(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := t.Leaderboard(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func handlePolicy(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.Policy())
	}
}
