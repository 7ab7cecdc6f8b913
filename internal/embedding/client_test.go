package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newFaceServer(t *testing.T, status int, resp FaceResponse) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/embed/face", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if len(data) == 0 {
			t.Error("empty upload")
		}
		if ct := header.Header.Get("Content-Type"); ct == "" {
			t.Error("part has no content type")
		}
		if status != http.StatusOK {
			http.Error(w, "model failure", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient("", 0); err == nil {
		t.Error("expected error for empty URL")
	}
	c, err := NewClient("http://embed:8000/", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.baseURL != "http://embed:8000" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}

func TestClient_Extract(t *testing.T) {
	srv := newFaceServer(t, http.StatusOK, FaceResponse{
		FacesCount: 2,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: 3, Embedding: []float64{0.1, 0.2, 0.3}, BBox: []float64{10, 20, 50, 70}, DetScore: 0.9},
			{FaceIndex: 1, Dim: 3, Embedding: []float64{0.4, 0.5, 0.6}, BBox: []float64{100, 20, 150, 70}, DetScore: 0.8},
		},
		Model: "buffalo_l",
	})
	c, _ := NewClient(srv.URL, 0)

	faces, err := c.Extract(context.Background(), testPNG(t, 200, 120))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("faces = %d, want 2", len(faces))
	}
	if faces[0].Region != (facematch.BoundingBox{X: 10, Y: 20, W: 40, H: 50}) {
		t.Errorf("region = %+v", faces[0].Region)
	}
	if faces[0].Descriptor[2] != 0.3 {
		t.Errorf("descriptor = %v", faces[0].Descriptor)
	}
}

func TestClient_ExtractNoFaces(t *testing.T) {
	srv := newFaceServer(t, http.StatusOK, FaceResponse{})
	c, _ := NewClient(srv.URL, 0)

	_, err := c.Extract(context.Background(), testPNG(t, 40, 40))
	if !errors.Is(err, facematch.ErrExtractionFailed) {
		t.Errorf("err = %v, want ErrExtractionFailed", err)
	}
}

func TestClient_ExtractServerError(t *testing.T) {
	srv := newFaceServer(t, http.StatusInternalServerError, FaceResponse{})
	c, _ := NewClient(srv.URL, 0)

	_, err := c.Extract(context.Background(), testPNG(t, 40, 40))
	if err == nil || errors.Is(err, facematch.ErrExtractionFailed) {
		t.Errorf("err = %v, want API error", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping should fail on unhealthy server")
	}
}

func TestClient_ExtractUndecodable(t *testing.T) {
	c, _ := NewClient("http://127.0.0.1:1", 0)
	_, err := c.Extract(context.Background(), []byte("not an image"))
	if !errors.Is(err, facematch.ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestClient_Ping(t *testing.T) {
	srv := newFaceServer(t, http.StatusOK, FaceResponse{})
	c, _ := NewClient(srv.URL, 0)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestResizeImage(t *testing.T) {
	small := testPNG(t, 100, 50)
	out, scale, err := ResizeImage(small, 200)
	if err != nil {
		t.Fatalf("ResizeImage: %v", err)
	}
	if scale != 1 || !bytes.Equal(out, small) {
		t.Error("small image should be returned unchanged")
	}

	out, scale, err = ResizeImage(testPNG(t, 400, 200), 200)
	if err != nil {
		t.Fatalf("ResizeImage: %v", err)
	}
	if scale != 0.5 {
		t.Errorf("scale = %v, want 0.5", scale)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("resized to %dx%d, want 200x100", b.Dx(), b.Dy())
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"short", []byte{0xFF}, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToJPEG(t *testing.T) {
	out, err := toJPEG(testPNG(t, 20, 20))
	if err != nil {
		t.Fatalf("toJPEG: %v", err)
	}
	if detectMIMEType(out) != "image/jpeg" {
		t.Error("output is not jpeg")
	}
}

func TestLocalUnavailable(t *testing.T) {
	if LocalAvailable {
		t.Skip("built with dlib")
	}
	if _, err := NewLocal("/models"); !errors.Is(err, ErrLocalUnavailable) {
		t.Errorf("err = %v, want ErrLocalUnavailable", err)
	}
}
