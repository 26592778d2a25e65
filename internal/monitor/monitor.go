// Package monitor ties extraction, matching, enrollment and the access log
// together into the operations exposed by the endpoint.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/spyhole/internal/accesslog"
	"github.com/kozaktomas/spyhole/internal/biometric"
	"github.com/kozaktomas/spyhole/internal/constants"
	"github.com/kozaktomas/spyhole/internal/enrollment"
	"github.com/kozaktomas/spyhole/internal/facematch"
	"github.com/kozaktomas/spyhole/internal/gallery"
)

// ErrAlreadyBootstrapped is returned when Bootstrap is called a second time.
var ErrAlreadyBootstrapped = errors.New("gallery already bootstrapped")

// ReasonProcessingFailed is recorded when the extractor fails for reasons other than a missing face.
const ReasonProcessingFailed = "face processing failed"

// ProbeResult is the answer to one submitted probe.
type ProbeResult struct {
	EventID    string  `json:"id"`
	Recognized bool    `json:"recognized"`
	Subject    string  `json:"name"`
	Timestamp  string  `json:"timestamp"`
	Filename   string  `json:"filename"`
	Distance   float64 `json:"distance,omitempty"`
}

// Service owns the gallery, the event log and the extractor.
// Lifecycle: New, Bootstrap once, then any number of concurrent calls, then Close.
type Service struct {
	extractor *limitedExtractor
	gallery   *gallery.Gallery
	recorder  *accesslog.Recorder
	workflow  *enrollment.Workflow
	probes    ProbeStore
	threshold float64
	workers   int
	logger    *zap.Logger
	now       func() time.Time

	bootstrapMu  sync.Mutex
	bootstrapped bool
}

type options struct {
	threshold float64
	workers   int
	logger    *zap.Logger
	now       func() time.Time
	accounts  enrollment.AccountChecker
}

// Option configures a Service.
type Option func(*options)

// WithThreshold sets the acceptance distance (exclusive).
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		if threshold > 0 {
			o.threshold = threshold
		}
	}
}

// WithWorkers bounds concurrent extractor calls.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithAccountChecker rejects enrollment of labels that already have an account.
func WithAccountChecker(c enrollment.AccountChecker) Option {
	return func(o *options) {
		o.accounts = c
	}
}

// New creates a service with an empty gallery and event log.
func New(extractor biometric.Extractor, images enrollment.ImageStore, probes ProbeStore, opts ...Option) *Service {
	o := options{
		threshold: constants.DefaultMatchThreshold,
		workers:   runtime.NumCPU(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	limited := newLimitedExtractor(extractor, o.workers)
	g := gallery.New(0)

	wfOpts := []enrollment.Option{enrollment.WithLogger(o.logger)}
	if o.accounts != nil {
		wfOpts = append(wfOpts, enrollment.WithAccountChecker(o.accounts))
	}

	return &Service{
		extractor: limited,
		gallery:   g,
		recorder:  accesslog.NewRecorder(),
		workflow:  enrollment.NewWorkflow(images, limited, g, wfOpts...),
		probes:    probes,
		threshold: o.threshold,
		workers:   o.workers,
		logger:    o.logger,
		now:       o.now,
	}
}

// Bootstrap fills the gallery from the reference photos in knownDir.
func (s *Service) Bootstrap(ctx context.Context, knownDir string, opts ...gallery.LoadOption) (gallery.LoadStats, error) {
	s.bootstrapMu.Lock()
	defer s.bootstrapMu.Unlock()
	if s.bootstrapped {
		return gallery.LoadStats{}, ErrAlreadyBootstrapped
	}

	loadOpts := append([]gallery.LoadOption{
		gallery.WithWorkers(s.workers),
		gallery.WithLogger(s.logger),
	}, opts...)
	stats, err := s.gallery.LoadAll(ctx, knownDir, s.extractor, loadOpts...)
	if err != nil {
		return stats, fmt.Errorf("failed to load known faces: %w", err)
	}
	s.bootstrapped = true
	return stats, nil
}

// SubmitProbe stores the probe, matches it against the gallery and records the outcome.
// Undecodable bytes return biometric.ErrInvalidImage and record nothing.
// A probe without a face is recorded as not recognized with subject "no face found".
func (s *Service) SubmitProbe(ctx context.Context, data []byte) (ProbeResult, error) {
	if _, err := biometric.ValidateImage(data); err != nil {
		return ProbeResult{}, err
	}

	now := s.now()
	name, err := s.probes.Save(now, data)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to store probe: %w", err)
	}

	var verdict facematch.Verdict
	emb, err := s.extractor.Extract(ctx, data)
	switch {
	case err == nil:
		verdict = facematch.Match(emb, s.gallery.Snapshot(), s.threshold)
	case errors.Is(err, biometric.ErrNoFaceFound):
		verdict = facematch.Rejected(constants.NoFaceSubject)
	case ctx.Err() != nil:
		return ProbeResult{}, ctx.Err()
	default:
		s.logger.Error("probe extraction failed", zap.String("file", name), zap.Error(err))
		verdict = facematch.Rejected(ReasonProcessingFailed)
	}

	event := accesslog.NewEvent(now, name, verdict)
	s.recorder.Record(event)

	s.logger.Info("probe processed",
		zap.String("file", name),
		zap.Bool("recognized", event.Recognized),
		zap.String("subject", event.Subject),
		zap.Float64("distance", event.Distance),
	)

	return ProbeResult{
		EventID:    event.ID,
		Recognized: event.Recognized,
		Subject:    event.Subject,
		Timestamp:  event.Timestamp,
		Filename:   event.ImageReference,
		Distance:   event.Distance,
	}, nil
}

// EnrollIdentity adds or replaces the template of label from a reference photo.
func (s *Service) EnrollIdentity(ctx context.Context, label, filename string, data []byte) enrollment.Result {
	return s.workflow.Enroll(ctx, label, filename, data)
}

// UnenrollIdentity reverts a successful EnrollIdentity, removing the label's
// templates and its reference photo.
func (s *Service) UnenrollIdentity(res enrollment.Result) error {
	return s.workflow.Unenroll(res)
}

// Events returns every recorded access event in arrival order.
func (s *Service) Events() []accesslog.Event {
	return s.recorder.List()
}

// GallerySize returns the number of enrolled templates.
func (s *Service) GallerySize() int {
	return s.gallery.Len()
}

// Labels returns the enrolled labels in gallery order.
func (s *Service) Labels() []string {
	return s.gallery.Labels()
}

// EmbeddingDim returns the template dimension, 0 while the gallery has never held an entry.
func (s *Service) EmbeddingDim() int {
	return s.gallery.Dim()
}

// Threshold returns the acceptance distance.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// ProbePath resolves a stored probe image name for serving.
func (s *Service) ProbePath(name string) (string, error) {
	return s.probes.Path(name)
}

// Close releases the extractor.
func (s *Service) Close() error {
	return s.extractor.Close()
}

// limitedExtractor bounds the number of in-flight extractions with a semaphore.
type limitedExtractor struct {
	biometric.Extractor
	semaphore chan struct{}
}

func newLimitedExtractor(ext biometric.Extractor, workers int) *limitedExtractor {
	return &limitedExtractor{
		Extractor: ext,
		semaphore: make(chan struct{}, workers),
	}
}

func (l *limitedExtractor) Extract(ctx context.Context, data []byte) (biometric.Embedding, error) {
	select {
	case l.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.semaphore }()
	return l.Extractor.Extract(ctx, data)
}
