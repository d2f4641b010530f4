package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/handler/health"
	"github.com/campday/cornerquest/internal/tracker"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type groupPath struct {
	GroupID int `path:"groupID"`
}

type stationPath struct {
	StationID int `path:"stationID"`
}

type groupStationPath struct {
	GroupID   int `path:"groupID"`
	StationID int `path:"stationID"`
}

type operation struct {
	method, path, summary, description string
	params                             any
	req                                any
	resp                               any
	status                             int
	errors                             []int
	contentType                        string
}

const scorerNote = " Requires X-Scorer-Code when a scorer code is configured."

var operations = []operation{
	{method: http.MethodGet, path: "/healthz", summary: "Health check",
		description: "Returns the health status of backend dependencies.",
		resp:        health.Response{}, status: http.StatusOK},
	{method: http.MethodGet, path: "/api/stations", summary: "List stations",
		description: "Returns the station registry ordered by id.",
		resp:        []corners.Station{}, status: http.StatusOK},
	{method: http.MethodGet, path: "/api/stations/{stationID}", params: stationPath{}, summary: "Get station",
		description: "Returns one station.",
		resp:        corners.Station{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound}},
	{method: http.MethodGet, path: "/api/policy", summary: "Score policy",
		description: "Returns the base score per outcome and the bonus cap.",
		resp:        corners.ScorePolicy{}, status: http.StatusOK},
	{method: http.MethodGet, path: "/api/groups", summary: "Leaderboard",
		description: "Lists groups by aggregate score. Tied groups share a rank.",
		resp:        []tracker.Standing{}, status: http.StatusOK, errors: []int{http.StatusServiceUnavailable}},
	{method: http.MethodGet, path: "/api/groups/{groupID}/progress", params: groupPath{}, summary: "Get progress",
		description: "Returns the group's progress, creating it on first read. Stale is set when the store is unreachable and cached progress is served.",
		resp:        tracker.View{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
	{method: http.MethodPost, path: "/api/groups/{groupID}/progress", params: groupPath{}, summary: "Overwrite progress",
		description: "Replaces the stored progress. Completed stations must be the rotation prefix." + scorerNote,
		req:         OverwriteProgressRequest{}, resp: corners.Progress{}, status: http.StatusOK,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPut, path: "/api/groups/{groupID}/progress/complete", params: groupPath{}, summary: "Complete station",
		description: "Scores the current station with a raw score and advances the group." + scorerNote,
		req:         CompleteStationRequest{}, resp: tracker.Transition{}, status: http.StatusOK,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPost, path: "/api/groups/{groupID}/outcome", params: groupPath{}, summary: "Record outcome",
		description: "Scores the current station from a game outcome and advances the group." + scorerNote,
		req:         OutcomeRequest{}, resp: tracker.Transition{}, status: http.StatusOK,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable}},
	{method: http.MethodGet, path: "/api/groups/{groupID}/route", params: groupPath{}, summary: "Get route",
		description: "Lists the group's rotation with done, current and upcoming stops.",
		resp:        tracker.Route{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
	{method: http.MethodGet, path: "/api/groups/{groupID}/scores", params: groupPath{}, summary: "List scores",
		description: "Returns the group's ledger ordered by station id.",
		resp:        []corners.ScoreEntry{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
	{method: http.MethodGet, path: "/api/groups/{groupID}/scores/{stationID}", params: groupStationPath{}, summary: "Get score",
		description: "Returns one ledger entry.",
		resp:        corners.ScoreEntry{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound}},
	{method: http.MethodPost, path: "/api/groups/{groupID}/scores", params: groupPath{}, summary: "Submit score",
		description: "Completes the current station or corrects a completed one." + scorerNote,
		req:         ScoreRequest{}, resp: tracker.SubmitResult{}, status: http.StatusOK,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPut, path: "/api/groups/{groupID}/scores/{stationID}", params: groupStationPath{}, summary: "Correct score",
		description: "Rescores a completed station. Totals move by the score delta." + scorerNote,
		req:         OutcomeRequest{}, resp: tracker.Correction{}, status: http.StatusOK,
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodGet, path: "/api/groups/{groupID}/audit", params: groupPath{}, summary: "Audit totals",
		description: "Compares the progress total, ledger sum and aggregate score.",
		resp:        tracker.Audit{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
	{method: http.MethodPost, path: "/api/groups/{groupID}/resync", params: groupPath{}, summary: "Resync totals",
		description: "Sets both totals to the given value, or to the ledger sum when no total is sent." + scorerNote,
		req:         ResyncRequest{}, resp: corners.Progress{}, status: http.StatusOK,
		errors: []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodGet, path: "/api/groups/{groupID}/events", params: groupPath{}, summary: "SSE progress feed",
		description: "Server-Sent Events stream of the group's committed changes.",
		status:      http.StatusOK, contentType: "text/event-stream"},
	{method: http.MethodGet, path: "/ws/groups/{groupID}", params: groupPath{}, summary: "WebSocket progress feed",
		description: "Upgrades to a WebSocket that pushes the group's committed changes.",
		status:      http.StatusSwitchingProtocols, contentType: "text/plain"},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "CornerQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Corner rotation and scoring tracker for camp groups.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.params != nil {
			oc.AddReqStructure(op.params)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		if op.contentType != "" {
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(op.status), openapi.WithContentType(op.contentType))
		} else {
			oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		}
		for _, code := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(code))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
