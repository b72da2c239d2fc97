package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/handler/health"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type clueQuery struct {
	Date string `query:"date" required:"true" description:"YYYY-MM-DD"`
	Slot string `query:"slot" required:"true" enum:"morning,evening"`
}

type attemptsQuery struct {
	Date string `query:"date" description:"YYYY-MM-DD; requires slot"`
	Slot string `query:"slot" enum:"morning,evening"`
}

type namePath struct {
	Name string `path:"name"`
}

type tokenQuery struct {
	Token string `query:"token" description:"Session token; may be sent as a Bearer header instead."`
}

type operation struct {
	method, path, summary, description string
	req                                any
	resps                              map[int]any
	contentType                        string
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Clue Game API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Timed movie clue guessing: collaborator endpoints, hosted games and admin.")

	ops := []operation{
		{http.MethodGet, "/healthz", "Health check", "Returns the health status of backend dependencies.", nil,
			map[int]any{http.StatusOK: health.Response{}, http.StatusServiceUnavailable: health.Response{}}, ""},

		{http.MethodGet, "/api/clues", "Get clue set", "Returns the clue set and answer for a date and slot.", clueQuery{},
			map[int]any{http.StatusOK: ClueSetResponse{}, http.StatusBadRequest: ErrorResponse{}, http.StatusNotFound: ErrorResponse{}}, ""},
		{http.MethodGet, "/api/participants/{name}/check", "Check participant", "Reports whether the name may play.", namePath{},
			map[int]any{http.StatusOK: CheckResponse{}}, ""},
		{http.MethodPost, "/api/attempts", "Record attempt", "Appends an attempt to the ledger. Duplicates are acknowledged with recorded=false.", cluegame.AttemptPayload{},
			map[int]any{http.StatusOK: RecordResponse{}, http.StatusBadRequest: ErrorResponse{}}, ""},
		{http.MethodGet, "/api/attempts", "List attempts", "Returns raw ledger rows, newest first.", attemptsQuery{},
			map[int]any{http.StatusOK: []AttemptResponse{}, http.StatusBadRequest: ErrorResponse{}}, ""},

		{http.MethodPost, "/api/game/start", "Start game", "Validates the participant and starts a session for the current slot. Returns a session token.", StartRequest{},
			map[int]any{
				http.StatusOK:                 StartResponse{},
				http.StatusBadRequest:         ErrorResponse{},
				http.StatusForbidden:          ErrorResponse{},
				http.StatusNotFound:           ErrorResponse{},
				http.StatusServiceUnavailable: ErrorResponse{},
			}, ""},
		{http.MethodGet, "/api/game/state", "Get game state", "Returns the session snapshot and current clue. Requires Bearer token.", nil,
			map[int]any{http.StatusOK: GameStateResponse{}, http.StatusUnauthorized: ErrorResponse{}}, ""},
		{http.MethodPost, "/api/game/guess", "Submit guess", "Evaluates a guess, advances the session and reports the attempt. Requires Bearer token.", GuessRequest{},
			map[int]any{
				http.StatusOK:           GuessResponse{},
				http.StatusBadRequest:   ErrorResponse{},
				http.StatusUnauthorized: ErrorResponse{},
				http.StatusConflict:     ErrorResponse{},
				http.StatusGone:         ErrorResponse{},
			}, ""},
		{http.MethodDelete, "/api/game", "Abandon game", "Closes the session and ends its event streams. Requires Bearer token.", nil,
			map[int]any{http.StatusOK: nil, http.StatusUnauthorized: ErrorResponse{}}, ""},
		{http.MethodGet, "/api/game/events", "SSE event stream", "Server-Sent Events for attempt, won, lost and invalidated.", tokenQuery{},
			map[int]any{http.StatusOK: nil}, "text/event-stream"},
		{http.MethodGet, "/api/game/ws", "WebSocket event stream", "Same events as /api/game/events over a WebSocket.", tokenQuery{},
			map[int]any{http.StatusSwitchingProtocols: nil}, "text/plain"},
		{http.MethodGet, "/api/game/last/{name}", "Last session", "Returns the last saved session snapshot for a participant.", namePath{},
			map[int]any{http.StatusOK: cluegame.Snapshot{}, http.StatusNotFound: ErrorResponse{}}, ""},

		{http.MethodPost, "/api/admin/login", "Admin login", "Authenticate with email and password. Sets admin_session cookie.", AdminLoginRequest{},
			map[int]any{http.StatusOK: AdminMeResponse{}, http.StatusUnauthorized: ErrorResponse{}}, ""},
		{http.MethodPost, "/api/admin/logout", "Admin logout", "Clears admin session and cookie.", nil,
			map[int]any{http.StatusOK: nil}, ""},
		{http.MethodGet, "/api/admin/me", "Current admin", "Returns the currently authenticated admin.", nil,
			map[int]any{http.StatusOK: AdminMeResponse{}, http.StatusUnauthorized: ErrorResponse{}}, ""},
		{http.MethodGet, "/api/admin/clues", "Admin get clue set", "Same as /api/clues. Requires admin_session cookie.", clueQuery{},
			map[int]any{http.StatusOK: ClueSetResponse{}, http.StatusNotFound: ErrorResponse{}, http.StatusUnauthorized: ErrorResponse{}}, ""},
		{http.MethodPut, "/api/admin/clues", "Save clue set", "Creates or replaces the clue set for a date and slot.", ClueSetRequest{},
			map[int]any{http.StatusOK: ClueSetResponse{}, http.StatusBadRequest: ErrorResponse{}, http.StatusUnauthorized: ErrorResponse{}}, ""},
		{http.MethodGet, "/api/admin/participants", "List participants", "Returns every registered name.", nil,
			map[int]any{http.StatusOK: []string{}, http.StatusUnauthorized: ErrorResponse{}}, ""},
		{http.MethodPost, "/api/admin/participants", "Add participant", "Registers a name. Adding an existing name is a no-op.", ParticipantRequest{},
			map[int]any{http.StatusCreated: ParticipantRequest{}, http.StatusBadRequest: ErrorResponse{}, http.StatusUnauthorized: ErrorResponse{}}, ""},
		{http.MethodDelete, "/api/admin/participants/{name}", "Remove participant", "Removes a registered name.", namePath{},
			map[int]any{http.StatusOK: nil, http.StatusNotFound: ErrorResponse{}, http.StatusUnauthorized: ErrorResponse{}}, ""},
	}

	for _, op := range ops {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for status, body := range op.resps {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(status)}
			if op.contentType != "" && body == nil {
				opts = append(opts, openapi.WithContentType(op.contentType))
			}
			oc.AddRespStructure(body, opts...)
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
