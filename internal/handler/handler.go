// Package handler contains chi HTTP handlers that render the activity board
// and translate form posts into board actions.
package handler

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/Shivanand-hulikatti/activity-board/internal/service"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/board.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Board is the controller the handlers drive.
type Board interface {
	View() model.ViewState
	MessageTTL() time.Duration
	Refresh(ctx context.Context) error
	Signup(ctx context.Context, email, activity string) (model.ActionResult, error)
	Unregister(ctx context.Context, activity, email string) (model.ActionResult, error)
}

// page is the template data: the shared board plus what this request's
// action produced.
type page struct {
	model.ViewState
	model.ActionResult
	// HideAfter is the CSS animation delay that hides the banner.
	HideAfter string
}

// BoardHandler holds all HTTP handlers for the board surface.
type BoardHandler struct {
	board Board
	page  *template.Template
	log   *slog.Logger
}

// NewBoardHandler constructs a BoardHandler.
func NewBoardHandler(board Board, log *slog.Logger) *BoardHandler {
	page := template.Must(template.New("board.html").Funcs(template.FuncMap{
		"pathEscape":     url.PathEscape,
		"noParticipants": func() string { return service.NoParticipantsText },
	}).ParseFS(templateFS, "templates/board.html"))

	return &BoardHandler{board: board, page: page, log: log}
}

// Routes mounts the board surface on r.
func (h *BoardHandler) Routes(r chi.Router) {
	r.Get("/", h.Page)
	r.Post("/signup", h.Signup)
	r.Post("/activities/{name}/unregister", h.Unregister)

	r.Route("/api", func(r chi.Router) {
		r.Use(CORS)
		r.Get("/board", h.ViewJSON)
		r.Post("/refresh", h.RefreshJSON)
	})

	r.Get("/health", HealthCheck)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *BoardHandler) render(w http.ResponseWriter, r *http.Request, result model.ActionResult) {
	data := page{
		ViewState:    h.board.View(),
		ActionResult: result,
		HideAfter:    fmt.Sprintf("%dms", h.board.MessageTTL().Milliseconds()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.page.Execute(w, data); err != nil {
		h.log.ErrorContext(r.Context(), "render board", "error", err)
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// Page handles GET /
// Refreshes the activities and renders the board. A failed load still
// renders, showing the failure text in place of the cards.
func (h *BoardHandler) Page(w http.ResponseWriter, r *http.Request) {
	_ = h.board.Refresh(r.Context())
	h.render(w, r, model.ActionResult{})
}

// Signup handles POST /signup
// Form fields: email, activity.
func (h *BoardHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	result, _ := h.board.Signup(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("activity"))
	h.render(w, r, result)
}

// Unregister handles POST /activities/{name}/unregister
// Form field: email.
func (h *BoardHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	name, err := activityParam(r)
	if err != nil {
		http.Error(w, "invalid activity name", http.StatusBadRequest)
		return
	}
	result, _ := h.board.Unregister(r.Context(), name, r.PostForm.Get("email"))
	h.render(w, r, result)
}

// ViewJSON handles GET /api/board
// Returns the current view state without refreshing.
func (h *BoardHandler) ViewJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.View())
}

// RefreshJSON handles POST /api/refresh
// Refreshes and returns the new view state.
func (h *BoardHandler) RefreshJSON(w http.ResponseWriter, r *http.Request) {
	_ = h.board.Refresh(r.Context())
	writeJSON(w, http.StatusOK, h.board.View())
}

// activityParam decodes {name}. chi routes on RawPath when the path holds
// escapes such as %2F, leaving the parameter still encoded.
func activityParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
