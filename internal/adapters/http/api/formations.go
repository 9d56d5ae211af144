package api

import (
	"net/http"

	"github.com/okian/pitchside/internal/domain/formation"
	"github.com/okian/pitchside/internal/domain/model"
)

// FormationHandler serves the formation catalogue.
type FormationHandler struct {
	deps FormationDependencies
}

// NewFormationHandler creates a new formation handler.
func NewFormationHandler(deps FormationDependencies) *FormationHandler {
	return &FormationHandler{deps: deps}
}

type layoutResponse struct {
	Formation formation.Formation `json:"formation"`
	Side      model.Side          `json:"side"`
	Markers   []model.Marker      `json:"markers"`
}

// HandleList handles GET /formations requests.
func (h *FormationHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Formations())
}

// HandleLayout handles GET /formations/{tag}?side=home|away requests. The
// side defaults to home.
func (h *FormationHandler) HandleLayout(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_formation"
	f, err := formation.Parse(r.PathValue("tag"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	side := model.Home
	if s := r.URL.Query().Get("side"); s != "" {
		side = model.Side(s)
	}
	markers, err := h.deps.Layout(f, side)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, layoutResponse{Formation: f, Side: side, Markers: markers})
}
