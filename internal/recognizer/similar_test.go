package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kozaktomas/face-detection/internal/database"
	"github.com/kozaktomas/face-detection/internal/database/mock"
	"github.com/kozaktomas/face-detection/internal/facematch"
)

// searchingStore adds an in-memory EmbeddingSearcher to the mock store and
// records the limits it was asked for.
type searchingStore struct {
	*mock.MockIdentityStore
	limits []int
}

func (s *searchingStore) NearestEmbeddings(ctx context.Context, query []float64, limit int) ([]database.Neighbor, error) {
	s.limits = append(s.limits, limit)
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []database.Neighbor
	for _, id := range all {
		var vec []float64
		if id.Variant != "embedding" || json.Unmarshal(id.Encoding, &vec) != nil || len(vec) != len(query) {
			continue
		}
		out = append(out, database.Neighbor{Identity: id, Distance: facematch.EuclideanDistance(vec, query)})
	}
	return out, nil
}

func addUsers(store *mock.MockIdentityStore) {
	for _, u := range []struct{ name, variant, enc string }{
		{"Alice", "embedding", `[0, 0]`},
		{"Bob", "embedding", `[3, 4]`},
		{"Carol", "embedding", `[6, 8]`},
		{"Dave", "embedding", `[4, 3]`},
		{"Eve", "histogram", `{"histogram": []}`},
		{"Frank", "embedding", `[`},
		{"Zed", "embedding", `[0.1, 0]`},
	} {
		store.AddIdentity(database.StoredIdentity{Name: u.name, Variant: u.variant, Encoding: json.RawMessage(u.enc)})
	}
}

func neighborNames(ns []Neighbor) []string {
	names := make([]string, len(ns))
	for i, n := range ns {
		names[i] = n.Name
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSimilar_RanksFromList(t *testing.T) {
	f := newFixture(t, histogramEncoder)
	addUsers(f.store)
	ctx := context.Background()

	resp, err := f.svc.Similar(ctx, "Alice", 10)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if resp.Method != "embedding" {
		t.Errorf("method = %q, want embedding", resp.Method)
	}
	// The service runs histograms, so embedding neighbors use the embedding default.
	if resp.Tolerance != 0.6 {
		t.Errorf("tolerance = %v, want 0.6", resp.Tolerance)
	}
	want := []string{"Zed", "Bob", "Dave", "Carol"}
	if got := neighborNames(resp.Neighbors); !equalNames(got, want) {
		t.Fatalf("neighbors = %v, want %v", got, want)
	}
	if !resp.Neighbors[0].WithinTolerance || resp.Neighbors[1].WithinTolerance {
		t.Errorf("within tolerance = %+v", resp.Neighbors)
	}
	if resp.Neighbors[1].Distance != 5 || resp.Neighbors[3].Distance != 10 {
		t.Errorf("distances = %+v", resp.Neighbors)
	}

	limited, err := f.svc.Similar(ctx, "Alice", 2)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if got := neighborNames(limited.Neighbors); !equalNames(got, []string{"Zed", "Bob"}) {
		t.Errorf("limited neighbors = %v", got)
	}
}

func TestSimilar_UsesActiveTolerance(t *testing.T) {
	ext := &fakeExtractor{vectors: map[string][]float64{}}
	f := newFixture(t, func(*facematch.Detector) facematch.Encoder { return facematch.NewEmbeddingEncoder(ext) })
	f.svc.tolerance = 6
	addUsers(f.store)

	resp, err := f.svc.Similar(context.Background(), "Alice", 0)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if resp.Tolerance != 6 {
		t.Errorf("tolerance = %v, want 6", resp.Tolerance)
	}
	for _, n := range resp.Neighbors {
		if want := n.Distance < 6; n.WithinTolerance != want {
			t.Errorf("%s within tolerance = %v, want %v", n.Name, n.WithinTolerance, want)
		}
	}
}

func TestSimilar_UsesEmbeddingSearcher(t *testing.T) {
	f := newFixture(t, histogramEncoder)
	store := &searchingStore{MockIdentityStore: f.store}
	f.svc.store = store
	addUsers(f.store)

	resp, err := f.svc.Similar(context.Background(), "Alice", 3)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(store.limits) != 1 || store.limits[0] != 4 {
		t.Errorf("searcher limits = %v, want [4]", store.limits)
	}
	if got := neighborNames(resp.Neighbors); !equalNames(got, []string{"Zed", "Bob", "Dave"}) {
		t.Errorf("neighbors = %v", got)
	}

	// Histograms are never sent to the vector search.
	f.store.AddIdentity(database.StoredIdentity{Name: "Hist", Variant: "histogram", Encoding: mustHistogram(t)})
	if _, err := f.svc.Similar(context.Background(), "Hist", 3); err != nil {
		t.Fatalf("Similar histogram: %v", err)
	}
	if len(store.limits) != 1 {
		t.Errorf("searcher called for a histogram: %v", store.limits)
	}
}

func TestSimilar_Errors(t *testing.T) {
	f := newFixture(t, histogramEncoder)
	addUsers(f.store)
	ctx := context.Background()

	if _, err := f.svc.Similar(ctx, "nobody", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user err = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Similar(ctx, "Frank", 5); !errors.Is(err, facematch.ErrMalformedEncoding) {
		t.Errorf("broken encoding err = %v, want ErrMalformedEncoding", err)
	}

	boom := errors.New("boom")
	f.store.ListError = boom
	if _, err := f.svc.Similar(ctx, "Alice", 5); !errors.Is(err, boom) {
		t.Errorf("list failure err = %v, want boom", err)
	}
}

func mustHistogram(t *testing.T) json.RawMessage {
	t.Helper()
	var h facematch.Histogram
	for i := range h.Bins {
		h.Bins[i] = float64(i%5) / 512
	}
	data, err := facematch.MarshalEncoding(h)
	if err != nil {
		t.Fatalf("MarshalEncoding: %v", err)
	}
	return data
}
