package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-detection/internal/config"
	"github.com/kozaktomas/face-detection/internal/constants"
	"github.com/kozaktomas/face-detection/internal/database"
	"github.com/kozaktomas/face-detection/internal/recognizer"
	"github.com/kozaktomas/face-detection/internal/storage"
)

// InfoHandler serves health, service info and stored uploads.
type InfoHandler struct {
	config  *config.Config
	service *recognizer.Service
	files   *storage.Store
}

// NewInfoHandler creates a new info handler.
func NewInfoHandler(cfg *config.Config, svc *recognizer.Service, files *storage.Store) *InfoHandler {
	return &InfoHandler{config: cfg, service: svc, files: files}
}

// Health handles the health check endpoint.
func (h *InfoHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":                  "ok",
		"face_recognition_method": h.service.Method(),
		"database":                database.Backend(),
	})
}

// Info describes the API and the active recognition setup.
func (h *InfoHandler) Info(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"api_version":             constants.APIVersion,
		"face_recognition_method": h.service.Method(),
		"tolerance":               h.service.Tolerance(),
		"supported_formats":       h.config.Uploads.AllowedExtensions,
		"max_file_size":           h.config.Uploads.MaxSize,
		"endpoints": map[string]string{
			"register":       "POST " + constants.APIPrefix + "/register",
			"detect":         "POST " + constants.APIPrefix + "/detect",
			"users":          "GET " + constants.APIPrefix + "/users",
			"user":           "GET " + constants.APIPrefix + "/users/{name}",
			"delete_user":    "DELETE " + constants.APIPrefix + "/users/{name}",
			"reencode_user":  "POST " + constants.APIPrefix + "/users/{name}/reencode",
			"uploaded_image": "GET " + constants.APIPrefix + "/uploads/{filename}",
			"health":         "GET " + constants.APIPrefix + "/health",
			"metrics":        "GET /metrics",
		},
	})
}

// Upload serves a stored image.
func (h *InfoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	f, err := h.files.Open(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			respondError(w, http.StatusNotFound, errFileNotFound)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, name, stat.ModTime(), f)
}
