package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-detection/internal/constants"
	"github.com/kozaktomas/face-detection/internal/database"
	"github.com/kozaktomas/face-detection/internal/facematch"
	"github.com/kozaktomas/face-detection/internal/recognizer"
	"github.com/kozaktomas/face-detection/internal/storage"
)

// UsersHandler handles the registered users endpoints.
type UsersHandler struct {
	service *recognizer.Service
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(svc *recognizer.Service) *UsersHandler {
	return &UsersHandler{service: svc}
}

// UserResponse is a registered user without its encoding.
type UserResponse struct {
	ID        int64     `json:"user_id"`
	Name      string    `json:"name"`
	Method    string    `json:"method"`
	ImagePath string    `json:"image_path"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(id database.StoredIdentity) UserResponse {
	return UserResponse{
		ID:        id.ID,
		Name:      id.Name,
		Method:    id.Variant,
		ImagePath: id.ImagePath,
		ImageURL:  storage.URL(constants.APIPrefix, id.ImagePath),
		CreatedAt: id.CreatedAt,
		UpdatedAt: id.UpdatedAt,
	}
}

// List returns all users. The optional q parameter filters by name, ignoring
// case and diacritics.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.service.Users(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get users")
		return
	}

	query := r.URL.Query().Get("q")
	users := make([]UserResponse, 0, len(identities))
	for _, id := range identities {
		if !facematch.NameContains(id.Name, query) {
			continue
		}
		users = append(users, toUserResponse(id))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"users":                   users,
		"total_count":             len(users),
		"face_recognition_method": h.service.Method(),
	})
}

// Get returns one user.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.User(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondUserError(w, err, "Failed to get user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":                    toUserResponse(*identity),
		"face_recognition_method": h.service.Method(),
	})
}

// Delete removes a user and its stored image.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.respondUserError(w, err, "Failed to delete user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": constants.MsgUserDeleted})
}

// Reencode recomputes a user's encoding with the active method.
func (h *UsersHandler) Reencode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.Reencode(r.Context(), name); err != nil {
		h.respondUserError(w, err, "Failed to re-encode user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": constants.MsgUserReencoded,
		"name":    name,
		"method":  h.service.Method(),
	})
}

// Similar lists the users closest to a user under its stored method. The
// optional limit parameter bounds the result.
func (h *UsersHandler) Similar(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = n
	}
	resp, err := h.service.Similar(r.Context(), chi.URLParam(r, "name"), limit)
	if err != nil {
		h.respondUserError(w, err, "Failed to find similar users")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *UsersHandler) respondUserError(w http.ResponseWriter, err error, fallback string) {
	var rejected *recognizer.RejectedError
	switch {
	case errors.Is(err, recognizer.ErrNotFound):
		respondError(w, http.StatusNotFound, errUserNotFound)
	case errors.As(err, &rejected):
		respondError(w, http.StatusUnprocessableEntity, rejected.Reason)
	case errors.Is(err, facematch.ErrMalformedEncoding):
		respondError(w, http.StatusUnprocessableEntity, errUnreadableEncoding)
	default:
		slog.Error(fallback, "error", err)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
