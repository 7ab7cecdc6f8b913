package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/face-detection/internal/config"
	"github.com/kozaktomas/face-detection/internal/constants"
	"github.com/kozaktomas/face-detection/internal/database"
	"github.com/kozaktomas/face-detection/internal/facematch"
	"github.com/kozaktomas/face-detection/internal/recognizer"
	"github.com/kozaktomas/face-detection/internal/storage"
)

// RecognitionHandler handles registration and detection endpoints.
type RecognitionHandler struct {
	config  *config.Config
	service *recognizer.Service
	files   *storage.Store
}

// NewRecognitionHandler creates a new recognition handler.
func NewRecognitionHandler(cfg *config.Config, svc *recognizer.Service, files *storage.Store) *RecognitionHandler {
	return &RecognitionHandler{config: cfg, service: svc, files: files}
}

// RegisterResponse is returned for a successful registration.
type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// Register enrolls a new user from a multipart form with "name" and "photo".
func (h *RecognitionHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r, h.config.Uploads.MaxSize) {
		return
	}
	if _, ok := r.MultipartForm.Value["name"]; !ok {
		respondError(w, http.StatusBadRequest, errNameRequired)
		return
	}
	photo := readPhoto(w, r)
	if photo == nil {
		return
	}

	reg, err := h.service.Register(r.Context(), r.FormValue("name"), photo.Data, photo.Filename)
	if err != nil {
		var rejected *recognizer.RejectedError
		switch {
		case errors.Is(err, recognizer.ErrEmptyName):
			respondError(w, http.StatusBadRequest, errNameEmpty)
		case errors.Is(err, database.ErrDuplicateName):
			respondError(w, http.StatusConflict, errUserExists)
		case errors.Is(err, storage.ErrNotAllowed), errors.Is(err, storage.ErrInvalidName):
			respondError(w, http.StatusBadRequest, errInvalidFormat)
		case errors.As(err, &rejected):
			respondError(w, http.StatusBadRequest, rejected.Reason)
		default:
			slog.Error("registration failed", "name", r.FormValue("name"), "error", err)
			respondError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, RegisterResponse{
		Message:  constants.MsgUserRegistered,
		UserID:   reg.ID,
		Name:     reg.Name,
		ImageURL: storage.URL(constants.APIPrefix, reg.ImagePath),
	})
}

// Detect finds faces in the uploaded "photo" and tries to recognize the person.
func (h *RecognitionHandler) Detect(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r, h.config.Uploads.MaxSize) {
		return
	}
	photo := readPhoto(w, r)
	if photo == nil {
		return
	}
	if !h.files.AllowedFile(photo.Filename) {
		respondError(w, http.StatusBadRequest, errInvalidFormat)
		return
	}

	resp, err := h.service.Detect(r.Context(), photo.Data)
	if err != nil {
		if errors.Is(err, facematch.ErrDecode) {
			respondError(w, http.StatusBadRequest, errInvalidImage)
			return
		}
		slog.Error("face detection failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Face detection failed")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
