// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/tavla/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// defaultHeartbeat keeps idle event streams open through proxies.
const defaultHeartbeat = 30 * time.Second

// Handler serves the versioned API subrouter mounted under `/api/v1`.
// GET `/tasks/{id}` finds a task on any board; task mutations reach the active board only and
// answer 409 for a task that lives elsewhere.
type Handler struct {
	boards    common.BoardService
	watcher   common.StateWatcher
	heartbeat time.Duration
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// statusRequest is the body of POST `/tasks/{id}/status`.
type statusRequest struct {
	Status string `json:"status"`
}

// NewHandler constructs one HTTP API adapter. watcher may be nil, which disables `/events`.
func NewHandler(boards common.BoardService, watcher common.StateWatcher) *Handler {
	return &Handler{
		boards:    boards,
		watcher:   watcher,
		heartbeat: defaultHeartbeat,
	}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.boards == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "board service is not configured",
		})
		return
	}

	segments := splitPath(normalizePath(r.URL.Path))
	switch {
	case matchRoute(segments, "state"):
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h.handleGetState(w, r)
	case matchRoute(segments, "events"):
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h.handleEvents(w, r)
	case matchRoute(segments, "activity"):
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		h.handleListActivity(w, r)
	case matchRoute(segments, "boards"):
		switch r.Method {
		case http.MethodGet:
			h.handleListBoards(w, r)
		case http.MethodPost:
			h.handleCreateBoard(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case matchRoute(segments, "boards", "*"):
		switch r.Method {
		case http.MethodGet:
			h.handleGetBoard(w, r, segments[1])
		case http.MethodPut:
			h.handleUpdateBoard(w, r, segments[1])
		case http.MethodDelete:
			h.handleDeleteBoard(w, r, segments[1])
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case matchRoute(segments, "boards", "*", "activate"):
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		h.handleActivateBoard(w, r, segments[1])
	case matchRoute(segments, "tasks"):
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		h.handleCreateTask(w, r)
	case matchRoute(segments, "tasks", "*"):
		switch r.Method {
		case http.MethodGet:
			h.handleGetTask(w, r, segments[1])
		case http.MethodPut:
			h.handleUpdateTask(w, r, segments[1])
		case http.MethodDelete:
			h.handleDeleteTask(w, r, segments[1])
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case matchRoute(segments, "tasks", "*", "move"):
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		h.handleMoveTask(w, r, segments[1])
	case matchRoute(segments, "tasks", "*", "status"):
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		h.handleSetTaskStatus(w, r, segments[1])
	case matchRoute(segments, "tasks", "*", "subtasks", "*", "toggle"):
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		h.handleToggleSubtask(w, r, segments[1], segments[3])
	case matchRoute(segments, "ui", "dark_mode", "toggle"):
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		h.respondFlags(w, r, h.boards.ToggleDarkMode)
	case matchRoute(segments, "ui", "side_panel", "toggle"):
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		h.respondFlags(w, r, h.boards.ToggleSidePanel)
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// handleGetState serves GET `/state`.
func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.boards.GetState(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleListBoards serves GET `/boards`.
func (h *Handler) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.boards.ListBoards(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"boards": boards,
	})
}

// handleCreateBoard serves POST `/boards`.
func (h *Handler) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req common.CreateBoardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	board, err := h.boards.CreateBoard(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, board)
}

func (h *Handler) handleGetBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	board, err := h.boards.GetBoard(r.Context(), boardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// handleUpdateBoard serves PUT `/boards/{id}`. The path id wins over any body id.
func (h *Handler) handleUpdateBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	var req common.UpdateBoardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.BoardID = boardID
	board, err := h.boards.UpdateBoard(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) handleDeleteBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	if err := h.boards.DeleteBoard(r.Context(), boardID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivateBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	board, err := h.boards.ActivateBoard(r.Context(), boardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// handleCreateTask serves POST `/tasks` against the active board.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req common.CreateTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.boards.CreateTask(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.boards.GetTask(r.Context(), taskID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleUpdateTask serves PUT `/tasks/{id}`.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req common.UpdateTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.TaskID = taskID
	task, err := h.boards.UpdateTask(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request, taskID string) {
	if err := h.boards.DeleteTask(r.Context(), taskID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveTask serves POST `/tasks/{id}/move`. The indexes in the body are authoritative; the
// path id is checked against the task found at the source index.
func (h *Handler) handleMoveTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req common.MoveTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.TaskID = taskID
	task, err := h.boards.MoveTask(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleSetTaskStatus(w http.ResponseWriter, r *http.Request, taskID string) {
	var req statusRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.boards.SetTaskStatus(r.Context(), taskID, req.Status)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleToggleSubtask(w http.ResponseWriter, r *http.Request, taskID, subtaskID string) {
	task, err := h.boards.ToggleSubtask(r.Context(), taskID, subtaskID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) respondFlags(w http.ResponseWriter, r *http.Request, toggle func(context.Context) (common.UIFlags, error)) {
	flags, err := toggle(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

// handleListActivity serves GET `/activity?limit=N`.
func (h *Handler) handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: "limit must be an integer",
				Context: map[string]any{"limit": raw},
			})
			return
		}
		limit = parsed
	}
	events, err := h.boards.ListActivity(r.Context(), limit)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
	})
}

// handleEvents serves GET `/events` as a Server-Sent Events stream. The first event carries the
// current state; each committed transition sends one more.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		writeJSONError(w, http.StatusNotImplemented, APIError{
			Code:    "not_implemented",
			Message: "event stream is not available",
		})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "stream unsupported",
		})
		return
	}

	changes, cancel := h.watcher.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	if err := h.writeStateEvent(ctx, w); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-changes:
			if err := h.writeStateEvent(ctx, w); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ":keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) writeStateEvent(ctx context.Context, w io.Writer) error {
	state, err := h.boards.GetState(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
	return err
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// matchRoute reports whether segments match pattern, where "*" matches one non-blank segment.
func matchRoute(segments []string, pattern ...string) bool {
	if len(segments) != len(pattern) {
		return false
	}
	for i, want := range pattern {
		got := strings.TrimSpace(segments[i])
		if want == "*" {
			if got == "" {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	writeMethodNotAllowed(w, method)
	return false
}

// statusByCode maps transport error codes onto HTTP statuses.
var statusByCode = map[common.ErrorCode]int{
	common.CodeInvalidRequest: http.StatusBadRequest,
	common.CodeNotFound:       http.StatusNotFound,
	common.CodeConflict:       http.StatusConflict,
	common.CodeInternal:       http.StatusInternalServerError,
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	code := common.CodeOf(err)
	apiErr := APIError{Code: string(code), Message: "unknown error"}
	if err != nil {
		apiErr.Message = err.Error()
	}
	if code == common.CodeConflict {
		apiErr.Hint = "Reload the board state and retry against the current columns."
	}
	writeJSONError(w, statusByCode[code], apiErr)
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
