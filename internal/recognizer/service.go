// Package recognizer ties detection, encoding, matching and persistence into
// the register and detect operations.
package recognizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kozaktomas/face-detection/internal/constants"
	"github.com/kozaktomas/face-detection/internal/database"
	"github.com/kozaktomas/face-detection/internal/facematch"
	"github.com/kozaktomas/face-detection/internal/metrics"
	"github.com/kozaktomas/face-detection/internal/storage"
)

// Options configures a Service. Detector, Encoder, Store and Files are required.
type Options struct {
	Detector  *facematch.Detector
	Encoder   facematch.Encoder
	Store     database.IdentityWriter
	Files     *storage.Store
	Metrics   *metrics.Exporter
	Logger    *slog.Logger
	Tolerance float64 // <= 0 keeps the strategy default
	// Concurrency bounds parallel detect/encode work, defaults to constants.WorkerPoolSize.
	Concurrency int
}

// Service runs registrations and recognitions for one encoding strategy.
// The strategy is fixed for the lifetime of the service.
type Service struct {
	strategy  facematch.Strategy
	tolerance float64
	detector  *facematch.Detector
	encoder   facematch.Encoder
	validator *facematch.Validator
	matcher   *facematch.Matcher
	store     database.IdentityWriter
	files     *storage.Store
	metrics   *metrics.Exporter
	logger    *slog.Logger
	sem       *semaphore.Weighted
}

// New creates a service. The strategy follows the encoder's variant.
func New(opts Options) (*Service, error) {
	if opts.Detector == nil || opts.Encoder == nil || opts.Store == nil || opts.Files == nil {
		return nil, errors.New("recognizer: detector, encoder, store and files are required")
	}
	strategy, err := facematch.StrategyFor(opts.Encoder.Variant())
	if err != nil {
		return nil, err
	}
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = strategy.DefaultTolerance
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.WorkerPoolSize
	}
	return &Service{
		strategy:  strategy,
		tolerance: tolerance,
		detector:  opts.Detector,
		encoder:   opts.Encoder,
		validator: facematch.NewValidator(opts.Detector),
		matcher:   facematch.NewMatcher(strategy),
		store:     opts.Store,
		files:     opts.Files,
		metrics:   opts.Metrics,
		logger:    logger,
		sem:       semaphore.NewWeighted(int64(concurrency)),
	}, nil
}

// Method returns the active strategy name, "embedding" or "histogram".
func (s *Service) Method() string {
	return string(s.strategy.Variant)
}

// Tolerance returns the tolerance used for matching.
func (s *Service) Tolerance() float64 {
	return s.tolerance
}

// Registration describes a newly enrolled identity.
type Registration struct {
	ID        int64  `json:"user_id"`
	Name      string `json:"name"`
	ImagePath string `json:"-"`
	Variant   string `json:"-"`
}

// Recognition is the recognition part of a detect response.
type Recognition struct {
	Recognized bool     `json:"recognized"`
	UserName   string   `json:"user_name,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Distance   *float64 `json:"distance,omitempty"`
	Message    string   `json:"message,omitempty"`
	Method     string   `json:"method"`
}

// DetectResponse is returned by Detect.
type DetectResponse struct {
	FacesDetected int                       `json:"faces_detected"`
	FaceLocations facematch.DetectionResult `json:"face_locations"`
	Recognition   Recognition               `json:"recognition"`
}

func round(v float64) *float64 {
	p := math.Pow10(constants.ResponsePrecision)
	r := math.Round(v*p) / p
	return &r
}

// Register validates the image, encodes the face, stores the image and
// persists the identity. The stored file is removed if persisting fails.
func (s *Service) Register(ctx context.Context, name string, data []byte, filename string) (*Registration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if !s.files.AllowedFile(filename) {
		s.metrics.RecordRegistration(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: %s", storage.ErrNotAllowed, filename)
	}

	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		s.metrics.RecordRegistration(metrics.OutcomeDuplicate)
		return nil, fmt.Errorf("%w: %s", database.ErrDuplicateName, name)
	}

	enc, err := s.validateAndEncode(ctx, data)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			s.metrics.RecordRegistration(metrics.OutcomeRejected)
		}
		return nil, err
	}
	raw, err := facematch.MarshalEncoding(enc)
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}

	fileName, err := s.files.Save(bytes.NewReader(data), filename, name)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	id, err := s.store.Create(ctx, &database.StoredIdentity{
		Name:      name,
		Variant:   string(enc.Variant()),
		Encoding:  raw,
		ImagePath: fileName,
	})
	if err != nil {
		if delErr := s.files.Delete(fileName); delErr != nil {
			s.logger.Warn("failed to remove image after failed registration", "file", fileName, "error", delErr)
		}
		if errors.Is(err, database.ErrDuplicateName) {
			s.metrics.RecordRegistration(metrics.OutcomeDuplicate)
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.RecordRegistration(metrics.OutcomeRegistered)
	s.refreshIdentityGauge(ctx)
	s.logger.Info("user registered", "name", name, "id", id, "method", s.Method())

	return &Registration{ID: id, Name: name, ImagePath: fileName, Variant: string(enc.Variant())}, nil
}

// validateAndEncode gates the image through the validator and encodes it.
// An image the encoder finds no face in is rejected like an image without
// detected faces.
func (s *Service) validateAndEncode(ctx context.Context, data []byte) (facematch.FaceEncoding, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for worker: %w", err)
	}
	defer s.sem.Release(1)

	v := s.validator.Validate(data)
	if !v.OK() {
		return nil, &RejectedError{Reason: v.Reason}
	}
	enc, err := s.encoder.Encode(ctx, v.Image)
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}
	if enc == nil {
		return nil, &RejectedError{Reason: facematch.ReasonNoFaces}
	}
	return enc, nil
}

// Detect locates faces in data and tries to recognize the person. Outcomes
// other than a configuration mismatch or a store failure are reported in the
// response, never as errors.
func (s *Service) Detect(ctx context.Context, data []byte) (*DetectResponse, error) {
	start := time.Now()
	defer func() { s.metrics.RecordDetectLatency(s.Method(), time.Since(start)) }()

	img, err := facematch.DecodeImage(data)
	if err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for worker: %w", err)
	}
	faces, pass := s.detector.DetectGray(facematch.ToGray(img.Decoded))
	unknown, encErr := s.encoder.Encode(ctx, img)
	s.sem.Release(1)

	s.metrics.RecordDetection(pass)
	if encErr != nil {
		return nil, fmt.Errorf("encode face: %w", encErr)
	}

	resp := &DetectResponse{
		FacesDetected: len(faces),
		FaceLocations: faces,
		Recognition:   Recognition{Method: s.Method()},
	}
	outcome, err := s.recognize(ctx, unknown, &resp.Recognition)
	s.metrics.RecordRecognition(s.Method(), outcome)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) recognize(ctx context.Context, unknown facematch.FaceEncoding, rec *Recognition) (string, error) {
	if unknown == nil {
		rec.Message = constants.MsgNoFacesForRecognition
		return metrics.OutcomeNoFaces, nil
	}

	identities, err := s.store.List(ctx)
	if err != nil {
		return metrics.OutcomeError, fmt.Errorf("list users: %w", err)
	}
	if len(identities) == 0 {
		rec.Message = constants.MsgNoUsersRegistered
		return metrics.OutcomeNoUsers, nil
	}

	known := s.knownEncodings(identities)
	if len(known) == 0 {
		rec.Message = constants.MsgNoUsableEncodings
		return metrics.OutcomeNoUsable, nil
	}

	match, err := s.matcher.FindBestMatch(known, unknown, s.tolerance)
	if err != nil {
		return metrics.OutcomeError, fmt.Errorf("match face: %w", err)
	}
	if match == nil {
		rec.Message = constants.MsgNoMatch
		return metrics.OutcomeNoMatch, nil
	}

	rec.Recognized = true
	rec.UserName = match.MatchedName
	rec.Confidence = round(match.Confidence)
	rec.Distance = round(match.Distance)
	return metrics.OutcomeRecognized, nil
}

// knownEncodings decodes the stored encodings of the active variant in
// registration order. Records of another variant or with a broken encoding
// are skipped.
func (s *Service) knownEncodings(identities []database.StoredIdentity) []facematch.KnownEncoding {
	known := make([]facematch.KnownEncoding, 0, len(identities))
	for _, id := range identities {
		if id.Variant != string(s.strategy.Variant) {
			s.logger.Debug("skipping user stored with another method", "name", id.Name, "variant", id.Variant)
			continue
		}
		enc, err := facematch.UnmarshalEncoding(id.Encoding, s.strategy.Variant)
		if err != nil {
			s.logger.Warn("skipping user with unreadable encoding", "name", id.Name, "error", err)
			continue
		}
		known = append(known, facematch.KnownEncoding{Name: id.Name, Encoding: enc})
	}
	return known
}

// Reencode recomputes the stored encoding of name from its stored image with
// the active strategy.
func (s *Service) Reencode(ctx context.Context, name string) error {
	identity, err := s.store.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if identity == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	data, err := s.files.Read(identity.ImagePath)
	if err != nil {
		return fmt.Errorf("read stored image: %w", err)
	}
	enc, err := s.validateAndEncode(ctx, data)
	if err != nil {
		return err
	}
	raw, err := facematch.MarshalEncoding(enc)
	if err != nil {
		return fmt.Errorf("encode face: %w", err)
	}
	if err := s.store.UpdateEncoding(ctx, name, string(enc.Variant()), raw); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("update user: %w", err)
	}
	s.logger.Info("user re-encoded", "name", name, "method", s.Method())
	return nil
}

// Users returns all identities in registration order.
func (s *Service) Users(ctx context.Context) ([]database.StoredIdentity, error) {
	identities, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	s.metrics.SetIdentities(len(identities))
	return identities, nil
}

// User returns one identity by name.
func (s *Service) User(ctx context.Context, name string) (*database.StoredIdentity, error) {
	identity, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if identity == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return identity, nil
}

// Delete removes an identity and its stored image.
func (s *Service) Delete(ctx context.Context, name string) error {
	identity, err := s.User(ctx, name)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, name); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if identity.ImagePath != "" {
		if err := s.files.Delete(identity.ImagePath); err != nil {
			s.logger.Warn("failed to remove stored image", "file", identity.ImagePath, "error", err)
		}
	}
	s.refreshIdentityGauge(ctx)
	s.logger.Info("user deleted", "name", name)
	return nil
}

func (s *Service) refreshIdentityGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if n, err := s.store.Count(ctx); err == nil {
		s.metrics.SetIdentities(n)
	}
}
