package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kozaktomas/face-detection/internal/constants"
)

// Error messages returned to clients.
const (
	errNameRequired    = "Name is required"
	errNameEmpty       = "Name cannot be empty"
	errPhotoRequired   = "Photo is required"
	errNoPhotoSelected = "No photo selected"
	errInvalidFormat   = "Invalid file format"
	errInvalidImage    = "Invalid image format"
	errUserExists      = "User with this name already exists"
	errUserNotFound    = "User not found"
	errFileNotFound    = "File not found"
	errInvalidForm     = "failed to parse multipart form"

	errInvalidLimit       = "limit must be a positive integer"
	errUnreadableEncoding = "Stored face encoding is unreadable"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func tooLargeMessage(maxSize int64) string {
	return fmt.Sprintf("File size too large (max %dMB)", maxSize>>20)
}

// uploadedPhoto is the "photo" part of a multipart request.
type uploadedPhoto struct {
	Filename string
	Data     []byte
}

// parseUpload limits the body to maxSize and parses the multipart form.
// On failure it writes the error response and returns false.
func parseUpload(w http.ResponseWriter, r *http.Request, maxSize int64) bool {
	if maxSize <= 0 {
		maxSize = constants.MaxUploadSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(constants.MultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(maxSize))
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return false
	}
	return true
}

// readPhoto reads the "photo" file of a parsed multipart form. On failure it
// writes the error response and returns nil.
func readPhoto(w http.ResponseWriter, r *http.Request) *uploadedPhoto {
	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, errPhotoRequired)
		return nil
	}
	defer file.Close()

	if header.Filename == "" {
		respondError(w, http.StatusBadRequest, errNoPhotoSelected)
		return nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read photo")
		return nil
	}
	return &uploadedPhoto{Filename: header.Filename, Data: data}
}
