// Package server exposes the listing pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lithammer/dedent"
	"github.com/rs/zerolog"

	"snaplister/internal/session"
)

// App holds the handler dependencies.
type App struct {
	manager *session.Manager
	logger  zerolog.Logger
}

// NewApp creates the handler container.
func NewApp(manager *session.Manager, logger zerolog.Logger) *App {
	return &App{manager: manager, logger: logger}
}

// NewRouter builds the HTTP router with all pipeline endpoints.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(app.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", app.Index)
	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", app.Analyze)
		r.Post("/refine", app.Refine)
		r.Post("/clear", app.Clear)
		r.Get("/listing", app.GetListing)
		r.Patch("/listing", app.UpdateListing)
		r.Get("/history", app.GetHistory)
		r.Post("/history/{id}/load", app.LoadFromHistory)
		r.Delete("/history", app.ClearHistory)
	})

	return r
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// error maps pipeline failures onto HTTP statuses: input errors are the
// caller's fault, model transport and parse failures are upstream problems,
// schema violations are unprocessable output.
func (a *App) error(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	kind := ""
	switch {
	case errors.Is(err, session.ErrBusy):
		code = http.StatusConflict
	case errors.Is(err, session.ErrNoActiveListing), errors.Is(err, session.ErrNotFound):
		code = http.StatusNotFound
	default:
		if k, ok := session.KindOf(err); ok {
			switch k {
			case session.KindInput:
				code, kind = http.StatusBadRequest, "input"
			case session.KindTransport:
				code, kind = http.StatusBadGateway, "transport"
			case session.KindParse:
				code, kind = http.StatusBadGateway, "parse"
			case session.KindValidation:
				code, kind = http.StatusUnprocessableEntity, "validation"
			}
		}
	}
	a.json(w, code, errorResponse{Error: err.Error(), Kind: kind})
}

func formatText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// Index serves a short plain-text description of the API.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, formatText(`
		snaplister: AI-assisted marketplace listing generator

		POST   /api/analyze            multipart: image parts (png/jpeg/webp) + 1-2 category CSV files
		POST   /api/refine             {"instruction": "..."}
		POST   /api/clear              reset working state
		GET    /api/listing            current listing
		PATCH  /api/listing            manual field edits (full listing object)
		GET    /api/history            last %d committed listings
		POST   /api/history/{id}/load  make a past listing active
		DELETE /api/history            clear history
	`, session.HistoryLimit))
}

// Health is a liveness probe.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
