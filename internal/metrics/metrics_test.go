package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExporter_Counters(t *testing.T) {
	e := New(nil)

	e.RecordDetection(0)
	e.RecordDetection(0)
	e.RecordDetection(-1)
	e.RecordRecognition("histogram", OutcomeRecognized)
	e.RecordRegistration(OutcomeDuplicate)
	e.SetIdentities(3)

	if got := testutil.ToFloat64(e.detections.WithLabelValues("0")); got != 2 {
		t.Errorf("detections{pass=0} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(e.detections.WithLabelValues("none")); got != 1 {
		t.Errorf("detections{pass=none} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.recognitions.WithLabelValues("histogram", OutcomeRecognized)); got != 1 {
		t.Errorf("recognitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.registrations.WithLabelValues(OutcomeDuplicate)); got != 1 {
		t.Errorf("registrations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.identities); got != 3 {
		t.Errorf("identities = %v, want 3", got)
	}
}

func TestExporter_NilIsNoop(t *testing.T) {
	var e *Exporter
	e.RecordDetection(1)
	e.RecordDetectLatency("embedding", time.Second)
	e.RecordRecognition("embedding", OutcomeNoMatch)
	e.RecordRegistration(OutcomeRegistered)
	e.SetIdentities(1)
}

func TestExporter_Handler(t *testing.T) {
	e := New(nil)
	e.RecordDetectLatency("embedding", 30*time.Millisecond)

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "face_detection_detect_latency_seconds_count") {
		t.Errorf("histogram missing from output:\n%s", body)
	}
}
