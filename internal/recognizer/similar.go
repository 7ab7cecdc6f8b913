package recognizer

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/kozaktomas/face-detection/internal/constants"
	"github.com/kozaktomas/face-detection/internal/database"
	"github.com/kozaktomas/face-detection/internal/facematch"
)

// Neighbor is a registered user ranked by distance to another user.
type Neighbor struct {
	ID              int64   `json:"user_id"`
	Name            string  `json:"name"`
	Distance        float64 `json:"distance"`
	WithinTolerance bool    `json:"within_tolerance"`
}

// SimilarResponse lists the users closest to Name under its stored method.
type SimilarResponse struct {
	Name      string     `json:"name"`
	Method    string     `json:"method"`
	Tolerance float64    `json:"tolerance"`
	Neighbors []Neighbor `json:"neighbors"`
}

// Similar ranks the users stored with the same method as name by distance to
// its encoding, nearest first and by registration order on ties. Neighbors
// within tolerance are the ones Detect could confuse with name.
func (s *Service) Similar(ctx context.Context, name string, limit int) (*SimilarResponse, error) {
	if limit <= 0 {
		limit = constants.DefaultSimilarLimit
	}
	limit = min(limit, constants.MaxSimilarLimit)

	target, err := s.User(ctx, name)
	if err != nil {
		return nil, err
	}
	variant := facematch.Variant(target.Variant)
	strategy, err := facematch.StrategyFor(variant)
	if err != nil {
		return nil, err
	}
	enc, err := facematch.UnmarshalEncoding(target.Encoding, variant)
	if err != nil {
		return nil, fmt.Errorf("decode encoding of %s: %w", name, err)
	}

	tolerance := strategy.DefaultTolerance
	if variant == s.strategy.Variant {
		tolerance = s.tolerance
	}

	candidates, err := s.similarCandidates(ctx, target, enc, limit)
	if err != nil {
		return nil, err
	}

	neighbors := make([]Neighbor, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID || c.Variant != target.Variant {
			continue
		}
		other, err := facematch.UnmarshalEncoding(c.Encoding, variant)
		if err != nil {
			s.logger.Warn("skipping user with unreadable encoding", "name", c.Name, "error", err)
			continue
		}
		d, err := strategy.Distance(other, enc)
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", c.Name, err)
		}
		neighbors = append(neighbors, Neighbor{
			ID:              c.ID,
			Name:            c.Name,
			Distance:        d,
			WithinTolerance: facematch.IsMatch(d, tolerance),
		})
	}

	slices.SortStableFunc(neighbors, func(a, b Neighbor) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), cmp.Compare(a.ID, b.ID))
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	for i := range neighbors {
		neighbors[i].Distance = *round(neighbors[i].Distance)
	}

	return &SimilarResponse{
		Name:      target.Name,
		Method:    target.Variant,
		Tolerance: tolerance,
		Neighbors: neighbors,
	}, nil
}

// similarCandidates returns the identities to rank against target. Stores
// that index embeddings narrow the set in the database; everything else is
// ranked from the full list.
func (s *Service) similarCandidates(ctx context.Context, target *database.StoredIdentity, enc facematch.FaceEncoding, limit int) ([]database.StoredIdentity, error) {
	emb, isEmbedding := enc.(facematch.Embedding)
	searcher, canSearch := s.store.(database.EmbeddingSearcher)
	if !isEmbedding || !canSearch {
		identities, err := s.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		return identities, nil
	}

	// One extra row for the target itself.
	found, err := searcher.NearestEmbeddings(ctx, emb, limit+1)
	if err != nil {
		return nil, fmt.Errorf("search similar users: %w", err)
	}
	out := make([]database.StoredIdentity, len(found))
	for i, n := range found {
		out[i] = n.Identity
	}
	s.logger.Debug("similar users from vector index", "name", target.Name, "candidates", len(out))
	return out, nil
}
