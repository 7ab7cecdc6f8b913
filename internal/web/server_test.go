package web

import (
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/face-detection/internal/config"
	"github.com/kozaktomas/face-detection/internal/database/mock"
	"github.com/kozaktomas/face-detection/internal/facematch"
	"github.com/kozaktomas/face-detection/internal/metrics"
	"github.com/kozaktomas/face-detection/internal/recognizer"
	"github.com/kozaktomas/face-detection/internal/storage"
)

type noFaces struct{}

func (noFaces) DetectMultiScale(*image.Gray, facematch.Pass) []facematch.BoundingBox { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Uploads:   config.UploadsConfig{Folder: filepath.Join(t.TempDir(), "uploads"), AllowedExtensions: []string{"png"}},
		Detection: config.LoadDetection(),
	}
	files, err := storage.New(cfg.Uploads.Folder, cfg.Uploads.AllowedExtensions)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	det := facematch.NewDetector(noFaces{}, cfg.Detection.Cascade)
	svc, err := recognizer.New(recognizer.Options{
		Detector: det,
		Encoder:  facematch.NewHistogramEncoder(det, false),
		Store:    mock.NewMockIdentityStore(),
		Files:    files,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("recognizer.New: %v", err)
	}
	return NewServer(cfg, svc, files, metrics.New(nil))
}

func TestRoutes(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Router())
	defer srv.Close()

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/api/v1/info", http.StatusOK, `"api_version":"1.0.0"`},
		{http.MethodGet, "/api/v1/users", http.StatusOK, `"total_count":0`},
		{http.MethodGet, "/api/v1/users/nobody", http.StatusNotFound, `User not found`},
		{http.MethodDelete, "/api/v1/users/nobody", http.StatusNotFound, `User not found`},
		{http.MethodGet, "/api/v1/uploads/missing.png", http.StatusNotFound, `File not found`},
		{http.MethodGet, "/metrics", http.StatusOK, `face_detection_identities`},
		{http.MethodGet, "/api/v1/photos", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body %q does not contain %q", body, tt.wantBody)
			}
		})
	}
}

func TestRoutes_SecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}
