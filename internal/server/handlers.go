package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"snaplister/internal/listing"
	"snaplister/internal/llm"
	"snaplister/internal/session"
)

// maxUploadBytes bounds one analyze request (images plus category files).
const maxUploadBytes = 64 << 20

const (
	imageFieldName    = "image"
	categoryFieldName = "categories"
)

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
	}
	return data, nil
}

// imageMIMEType resolves an upload's MIME type, sniffing the content when
// the declared type is missing or not in the permitted set.
func imageMIMEType(fh *multipart.FileHeader, data []byte) string {
	if declared := fh.Header.Get("Content-Type"); llm.AllowedImageMIMETypes[declared] {
		return declared
	}
	return http.DetectContentType(data)
}

// Analyze accepts product images and 1-2 category taxonomy files as
// multipart form data and runs one generation cycle.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.json(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid multipart request: %v", err), Kind: "input"})
		return
	}

	var images []llm.ImageInput
	for _, fh := range r.MultipartForm.File[imageFieldName] {
		data, err := readUpload(fh)
		if err != nil {
			a.json(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "input"})
			return
		}
		images = append(images, llm.ImageInput{Data: data, MIMEType: imageMIMEType(fh, data)})
	}

	var categoryFiles []string
	for _, fh := range r.MultipartForm.File[categoryFieldName] {
		data, err := readUpload(fh)
		if err != nil {
			a.json(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "input"})
			return
		}
		categoryFiles = append(categoryFiles, string(data))
	}

	committed, err := a.manager.Analyze(r.Context(), images, categoryFiles)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, committed)
}

type refineRequest struct {
	Instruction string `json:"instruction"`
}

// Refine applies a free-text instruction to the active listing.
func (a *App) Refine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, errorResponse{Error: "invalid payload", Kind: "input"})
		return
	}
	committed, err := a.manager.Refine(r.Context(), req.Instruction)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, committed)
}

// Clear resets the working state. History survives.
func (a *App) Clear(w http.ResponseWriter, r *http.Request) {
	a.manager.Clear()
	a.json(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type statusResponse struct {
	State   session.State    `json:"state"`
	Listing *listing.Listing `json:"listing,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// GetListing returns the current lifecycle state, the active listing if any,
// and the last cycle error if any.
func (a *App) GetListing(w http.ResponseWriter, r *http.Request) {
	active, state, lastErr := a.manager.Active()
	resp := statusResponse{State: state, Listing: active}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	a.json(w, http.StatusOK, resp)
}

// UpdateListing applies a manual edit. The body is the full edited listing;
// edits are trusted local state and skip validation and the history push.
func (a *App) UpdateListing(w http.ResponseWriter, r *http.Request) {
	var edited listing.Listing
	if err := json.NewDecoder(r.Body).Decode(&edited); err != nil {
		a.json(w, http.StatusBadRequest, errorResponse{Error: "invalid payload", Kind: "input"})
		return
	}
	if err := a.manager.UpdateActive(&edited); err != nil {
		a.error(w, err)
		return
	}
	active, _, _ := a.manager.Active()
	a.json(w, http.StatusOK, active)
}

// GetHistory returns the committed listings, most recent first.
func (a *App) GetHistory(w http.ResponseWriter, r *http.Request) {
	history := a.manager.History()
	if history == nil {
		history = []*listing.Listing{}
	}
	a.json(w, http.StatusOK, history)
}

// LoadFromHistory makes a past listing active again.
func (a *App) LoadFromHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	loaded, err := a.manager.LoadFromHistory(id)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, loaded)
}

// ClearHistory empties the persisted history.
func (a *App) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.ClearHistory(); err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "cleared"})
}
