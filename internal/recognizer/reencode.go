package recognizer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-detection/internal/constants"
)

// ReencodeResult reports the outcome for one identity.
type ReencodeResult struct {
	Name string
	Err  error
}

// ReencodeAll re-encodes every identity whose stored variant differs from the
// active one, or all of them when force is set. onDone is called once per
// identity from worker goroutines. Per-identity failures do not stop the run.
func (s *Service) ReencodeAll(ctx context.Context, force bool, workers int, onDone func(ReencodeResult)) (int, error) {
	identities, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	var names []string
	for _, id := range identities {
		if force || id.Variant != s.Method() {
			names = append(names, id.Name)
		}
	}
	if len(names) == 0 {
		return 0, nil
	}

	if workers <= 0 {
		workers = constants.WorkerPoolSize
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := s.Reencode(gctx, name)
			if onDone != nil {
				onDone(ReencodeResult{Name: name, Err: err})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return len(names), fmt.Errorf("re-encode: %w", err)
	}
	return len(names), nil
}
