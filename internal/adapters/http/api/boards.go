package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/domain/board"
	"github.com/okian/pitchside/internal/domain/formation"
	"github.com/okian/pitchside/internal/domain/model"
)

// IdempotencyKeyHeader carries the client key that makes a save replay-safe.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxSaveWait caps the ?wait= duration of a save request.
const maxSaveWait = 30 * time.Second

// BoardHandler drives board sessions. Every route takes the match id as {id}
// and an optional ?variant=tactics|sketch query parameter.
type BoardHandler struct {
	deps BoardDependencies
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(deps BoardDependencies) *BoardHandler {
	return &BoardHandler{deps: deps}
}

type formationRequest struct {
	Side      string `json:"side"`
	Formation string `json:"formation"`
}

type toolRequest struct {
	Tool string `json:"tool"`
}

type readOnlyRequest struct {
	ReadOnly *bool `json:"read_only"`
}

type pointerRequest struct {
	Phase  string     `json:"phase"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Rect   board.Rect `json:"rect"`
	Target string     `json:"target,omitempty"`
}

type elementRequest struct {
	Kind string `json:"kind"`
}

type undoResponse struct {
	Undone bool         `json:"undone"`
	Board  service.View `json:"board"`
}

func boardRef(r *http.Request) (service.Ref, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return service.Ref{}, fmt.Errorf("%w: missing board id", ErrBadRequest)
	}
	v, err := service.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		return service.Ref{}, err
	}
	return service.Ref{MatchID: id, Variant: v}, nil
}

// writeView answers a mutation with the resulting board.
func (h *BoardHandler) writeView(w http.ResponseWriter, r *http.Request, op string, ref service.Ref) {
	v, err := h.deps.View(r.Context(), ref)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleView handles GET /boards/{id} requests.
func (h *BoardHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_board"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.writeView(w, r, op, ref)
}

// HandleSetFormation handles PUT /boards/{id}/formation requests.
func (h *BoardHandler) HandleSetFormation(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_formation"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	var req formationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	f, err := formation.Parse(req.Formation)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := h.deps.SetFormation(r.Context(), ref, model.Side(req.Side), f); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.writeView(w, r, op, ref)
}

// HandleSetTool handles PUT /boards/{id}/tool requests.
func (h *BoardHandler) HandleSetTool(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_tool"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	var req toolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	tool, err := board.ParseTool(req.Tool)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := h.deps.SetTool(r.Context(), ref, tool); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.writeView(w, r, op, ref)
}

// HandleSetReadOnly handles PUT /boards/{id}/readonly requests.
func (h *BoardHandler) HandleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_readonly"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	var req readOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.ReadOnly == nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing read_only")))
		return
	}
	if err := h.deps.SetReadOnly(r.Context(), ref, *req.ReadOnly); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.writeView(w, r, op, ref)
}

// HandlePointer handles POST /boards/{id}/pointer requests.
func (h *BoardHandler) HandlePointer(w http.ResponseWriter, r *http.Request) {
	const op = "api.pointer"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ev := board.PointerEvent{X: req.X, Y: req.Y, Rect: req.Rect, Target: req.Target}
	res, err := h.deps.Pointer(r.Context(), ref, service.Phase(strings.ToLower(req.Phase)), ev)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleUndo handles POST /boards/{id}/undo requests.
func (h *BoardHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	const op = "api.undo"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	undone, err := h.deps.Undo(r.Context(), ref)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	v, err := h.deps.View(r.Context(), ref)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, undoResponse{Undone: undone, Board: v})
}

// HandleClear handles POST /boards/{id}/clear requests.
func (h *BoardHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := h.deps.Clear(r.Context(), ref); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.writeView(w, r, op, ref)
}

// HandleSave handles POST /boards/{id}/save requests. Without ?wait= the
// save runs in the background and 202 is returned; with it the handler waits
// up to that duration and answers 200 once the tactic is stored.
func (h *BoardHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	var wait time.Duration
	if s := r.URL.Query().Get("wait"); s != "" {
		wait, err = time.ParseDuration(s)
		if err != nil || wait < 0 {
			writeFailure(w, NewKind(op, fmt.Errorf("%w: invalid wait %q", ErrBadRequest, s)))
			return
		}
		wait = min(wait, maxSaveWait)
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))

	out, err := h.deps.Save(r.Context(), ref, key, wait)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	status := http.StatusOK
	if out.Status == service.SavePending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, out)
}

// HandleTactic handles GET /boards/{id}/tactic requests.
func (h *BoardHandler) HandleTactic(w http.ResponseWriter, r *http.Request) {
	t, err := h.deps.Tactic(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_tactic", err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleSelections handles GET /boards/{id}/selections requests.
func (h *BoardHandler) HandleSelections(w http.ResponseWriter, r *http.Request) {
	sels, err := h.deps.Selections(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_selections", err))
		return
	}
	writeJSON(w, http.StatusOK, sels)
}

// HandleDismissNotice handles DELETE /boards/{id}/notice requests.
func (h *BoardHandler) HandleDismissNotice(w http.ResponseWriter, r *http.Request) {
	const op = "api.dismiss_notice"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := h.deps.DismissNotice(r.Context(), ref); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddElement handles POST /boards/{id}/elements requests.
func (h *BoardHandler) HandleAddElement(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_element"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	var req elementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := h.deps.AddElement(r.Context(), ref, model.Kind(strings.ToLower(req.Kind)))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleRemoveElement handles DELETE /boards/{id}/elements/{element} requests.
func (h *BoardHandler) HandleRemoveElement(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_element"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := h.deps.RemoveElement(r.Context(), ref, r.PathValue("element")); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearElements handles DELETE /boards/{id}/elements requests.
func (h *BoardHandler) HandleClearElements(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_elements"
	ref, err := boardRef(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := h.deps.ClearElements(r.Context(), ref); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.writeView(w, r, op, ref)
}
