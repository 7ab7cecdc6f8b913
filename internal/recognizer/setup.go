package recognizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kozaktomas/face-detection/internal/cascade"
	"github.com/kozaktomas/face-detection/internal/config"
	"github.com/kozaktomas/face-detection/internal/embedding"
	"github.com/kozaktomas/face-detection/internal/facematch"
)

// Pipeline is the detector and encoder selected for a configuration.
type Pipeline struct {
	Detector *facematch.Detector
	Encoder  facematch.Encoder
	closers  []io.Closer
}

// Close releases the classifier and any in-process model.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewPipeline loads the cascade classifier and picks the encoder. In auto mode
// the in-process dlib extractor wins, then a reachable embedding server, then
// the histogram encoder.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cls, err := cascade.Load(cfg.Recognition.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("load face cascade: %w", err)
	}
	p := &Pipeline{
		Detector: facematch.NewDetector(cls, cfg.Detection.Cascade),
		closers:  []io.Closer{cls},
	}

	switch cfg.Recognition.Strategy {
	case config.StrategyHistogram:
		p.Encoder = facematch.NewHistogramEncoder(p.Detector, cfg.Recognition.StorePatch)
	case config.StrategyEmbedding:
		ext, err := p.extractor(ctx, cfg, logger)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Encoder = facematch.NewEmbeddingEncoder(ext)
	default:
		ext, err := p.extractor(ctx, cfg, logger)
		if err != nil {
			logger.Warn("embedding extractor unavailable, falling back to histogram", "error", err)
			p.Encoder = facematch.NewHistogramEncoder(p.Detector, cfg.Recognition.StorePatch)
		} else {
			p.Encoder = facematch.NewEmbeddingEncoder(ext)
		}
	}

	logger.Info("face pipeline ready", "classifier", cls.Name(), "method", p.Encoder.Variant(), "passes", len(p.Detector.Passes()))
	return p, nil
}

func (p *Pipeline) extractor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (facematch.Extractor, error) {
	if embedding.LocalAvailable && cfg.Embedding.ModelsDir != "" {
		local, err := embedding.NewLocal(cfg.Embedding.ModelsDir)
		if err == nil {
			p.closers = append(p.closers, local)
			return local, nil
		}
		logger.Warn("failed to load local face models", "dir", cfg.Embedding.ModelsDir, "error", err)
	}

	if cfg.Embedding.URL == "" {
		return nil, errors.New("no embedding extractor configured: set EMBEDDING_URL or FACE_MODELS_DIR")
	}
	client, err := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Timeout)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("embedding server unreachable: %w", err)
	}
	return client, nil
}
