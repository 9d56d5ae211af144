package api

import (
	"errors"
	"net/http"
)

type closedRequest struct {
	Closed *bool `json:"closed"`
}

// MatchHandler serves the match catalogue.
type MatchHandler struct {
	deps MatchDependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

// HandleList handles GET /matches requests.
func (h *MatchHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	matches, err := h.deps.Matches(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.list_matches", err))
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleGet handles GET /matches/{id} requests.
func (h *MatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Match(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_match", err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleSetClosed handles PUT /matches/{id}/closed requests. Closing a match
// locks its boards; reopening unlocks them.
func (h *MatchHandler) HandleSetClosed(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_match_closed"
	var req closedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Closed == nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing closed")))
		return
	}
	m, err := h.deps.SetMatchClosed(r.Context(), r.PathValue("id"), *req.Closed)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleTactics handles GET /matches/{id}/tactics requests.
func (h *MatchHandler) HandleTactics(w http.ResponseWriter, r *http.Request) {
	tactics, err := h.deps.Tactics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.list_tactics", err))
		return
	}
	writeJSON(w, http.StatusOK, tactics)
}
