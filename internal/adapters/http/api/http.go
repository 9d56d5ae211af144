// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/domain/board"
	"github.com/okian/pitchside/internal/domain/formation"
	"github.com/okian/pitchside/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	FormationDependencies
	MatchDependencies
	BoardDependencies
}

// FormationDependencies exposes the formation catalogue.
type FormationDependencies interface {
	Formations() []formation.Formation
	Layout(f formation.Formation, side model.Side) ([]model.Marker, error)
}

// MatchDependencies exposes the match catalogue.
type MatchDependencies interface {
	Matches(ctx context.Context) ([]model.Match, error)
	Match(ctx context.Context, id string) (model.Match, error)
	SetMatchClosed(ctx context.Context, id string, closed bool) (model.Match, error)
	Tactics(ctx context.Context, matchID string) ([]model.Tactic, error)
}

// BoardDependencies drives board sessions.
type BoardDependencies interface {
	View(ctx context.Context, ref service.Ref) (service.View, error)
	SetFormation(ctx context.Context, ref service.Ref, side model.Side, f formation.Formation) error
	SetTool(ctx context.Context, ref service.Ref, tool board.Tool) error
	SetReadOnly(ctx context.Context, ref service.Ref, readOnly bool) error
	Pointer(ctx context.Context, ref service.Ref, phase service.Phase, ev board.PointerEvent) (service.PointerResult, error)
	Undo(ctx context.Context, ref service.Ref) (bool, error)
	Clear(ctx context.Context, ref service.Ref) error
	AddElement(ctx context.Context, ref service.Ref, kind model.Kind) (model.Marker, error)
	RemoveElement(ctx context.Context, ref service.Ref, id string) error
	ClearElements(ctx context.Context, ref service.Ref) error
	Save(ctx context.Context, ref service.Ref, idempotencyKey string, wait time.Duration) (service.SaveOutcome, error)
	Tactic(ctx context.Context, matchID string) (model.Tactic, error)
	Selections(ctx context.Context, matchID string) ([]model.Selection, error)
	DismissNotice(ctx context.Context, ref service.Ref) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	formationHandler *FormationHandler
	matchHandler     *MatchHandler
	boardHandler     *BoardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		formationHandler: NewFormationHandler(deps),
		matchHandler:     NewMatchHandler(deps),
		boardHandler:     NewBoardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /formations", MetricsMiddleware(s.formationHandler.HandleList, "formations"))
	mux.HandleFunc("GET /formations/{tag}", MetricsMiddleware(s.formationHandler.HandleLayout, "formation"))

	mux.HandleFunc("GET /matches", MetricsMiddleware(s.matchHandler.HandleList, "matches"))
	mux.HandleFunc("GET /matches/{id}", MetricsMiddleware(s.matchHandler.HandleGet, "match"))
	mux.HandleFunc("PUT /matches/{id}/closed", MetricsMiddleware(s.matchHandler.HandleSetClosed, "match_closed"))
	mux.HandleFunc("GET /matches/{id}/tactics", MetricsMiddleware(s.matchHandler.HandleTactics, "match_tactics"))

	b := s.boardHandler
	mux.HandleFunc("GET /boards/{id}", MetricsMiddleware(b.HandleView, "board"))
	mux.HandleFunc("PUT /boards/{id}/formation", MetricsMiddleware(b.HandleSetFormation, "board_formation"))
	mux.HandleFunc("PUT /boards/{id}/tool", MetricsMiddleware(b.HandleSetTool, "board_tool"))
	mux.HandleFunc("PUT /boards/{id}/readonly", MetricsMiddleware(b.HandleSetReadOnly, "board_readonly"))
	mux.HandleFunc("POST /boards/{id}/pointer", MetricsMiddleware(b.HandlePointer, "board_pointer"))
	mux.HandleFunc("POST /boards/{id}/undo", MetricsMiddleware(b.HandleUndo, "board_undo"))
	mux.HandleFunc("POST /boards/{id}/clear", MetricsMiddleware(b.HandleClear, "board_clear"))
	mux.HandleFunc("POST /boards/{id}/save", MetricsMiddleware(b.HandleSave, "board_save"))
	mux.HandleFunc("GET /boards/{id}/tactic", MetricsMiddleware(b.HandleTactic, "board_tactic"))
	mux.HandleFunc("GET /boards/{id}/selections", MetricsMiddleware(b.HandleSelections, "board_selections"))
	mux.HandleFunc("DELETE /boards/{id}/notice", MetricsMiddleware(b.HandleDismissNotice, "board_notice"))
	mux.HandleFunc("POST /boards/{id}/elements", MetricsMiddleware(b.HandleAddElement, "board_elements"))
	mux.HandleFunc("DELETE /boards/{id}/elements", MetricsMiddleware(b.HandleClearElements, "board_elements"))
	mux.HandleFunc("DELETE /boards/{id}/elements/{element}", MetricsMiddleware(b.HandleRemoveElement, "board_element"))
}
