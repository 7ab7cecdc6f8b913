package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-detection/internal/config"
	"github.com/kozaktomas/face-detection/internal/database/mock"
	"github.com/kozaktomas/face-detection/internal/facematch"
	"github.com/kozaktomas/face-detection/internal/recognizer"
	"github.com/kozaktomas/face-detection/internal/storage"
)

// stubClassifier reports one fixed face unless boxes is set to nil.
type stubClassifier struct {
	boxes []facematch.BoundingBox
}

func (c *stubClassifier) DetectMultiScale(*image.Gray, facematch.Pass) []facematch.BoundingBox {
	return c.boxes
}

type testEnv struct {
	cfg   *config.Config
	svc   *recognizer.Service
	store *mock.MockIdentityStore
	files *storage.Store
	cls   *stubClassifier
}

// testConfig creates a minimal config for testing
func testConfig(dir string) *config.Config {
	return &config.Config{
		Uploads: config.UploadsConfig{
			Folder:            dir,
			MaxSize:           1 << 20,
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		},
		Recognition: config.RecognitionConfig{Strategy: config.StrategyHistogram},
		Detection:   config.LoadDetection(),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig(filepath.Join(t.TempDir(), "uploads"))
	files, err := storage.New(cfg.Uploads.Folder, cfg.Uploads.AllowedExtensions)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	cls := &stubClassifier{boxes: []facematch.BoundingBox{{X: 4, Y: 4, W: 24, H: 24}}}
	det := facematch.NewDetector(cls, cfg.Detection.Cascade)
	store := mock.NewMockIdentityStore()
	svc, err := recognizer.New(recognizer.Options{
		Detector: det,
		Encoder:  facematch.NewHistogramEncoder(det, false),
		Store:    store,
		Files:    files,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("recognizer.New: %v", err)
	}
	return &testEnv{cfg: cfg, svc: svc, store: store, files: files, cls: cls}
}

// testPNG returns a small PNG whose pixels depend on seed.
func testPNG(t *testing.T, seed int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*seed + y*7) % 256)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST request with the given form fields and an
// optional photo part.
func multipartRequest(t *testing.T, path string, fields map[string]string, filename string, photo []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if photo != nil {
		part, err := mw.CreateFormFile("photo", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(photo)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
