// Package enrollment adds identities to the gallery from a reference photo,
// rolling back the stored photo when no usable face can be extracted.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kozaktomas/spyhole/internal/biometric"
	"github.com/kozaktomas/spyhole/internal/facematch"
	"github.com/kozaktomas/spyhole/internal/gallery"
)

// Result messages.
const (
	MsgEnrolled         = "face enrolled"
	MsgDuplicate        = "username already exists"
	MsgInvalidLabel     = "invalid username"
	MsgInvalidFormat    = "invalid format"
	MsgNoFace           = "no face detected"
	MsgInvalidImage     = "invalid image"
	MsgProcessingFailed = "face processing failed"
	MsgStorageFailed    = "failed to store image"
)

// Result reports the outcome of one enrollment. Failures are never returned as errors.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Label    string `json:"label,omitempty"`    // gallery label actually used
	Filename string `json:"filename,omitempty"` // stored reference photo
	Replaced bool   `json:"replaced,omitempty"` // an earlier template of the label was replaced
}

// AccountChecker reports whether a username is already registered.
type AccountChecker interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// Workflow enrolls identities. Enrollments are serialized so that two uploads for
// the same label cannot interleave their file writes.
type Workflow struct {
	mu        sync.Mutex
	images    ImageStore
	extractor biometric.Extractor
	gallery   *gallery.Gallery
	accounts  AccountChecker
	logger    *zap.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the workflow logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithAccountChecker makes Enroll reject labels that already have an account
// or whose sanitized stem is already enrolled.
func WithAccountChecker(c AccountChecker) Option {
	return func(w *Workflow) {
		w.accounts = c
	}
}

// NewWorkflow creates an enrollment workflow writing into images and g.
func NewWorkflow(images ImageStore, extractor biometric.Extractor, g *gallery.Gallery, opts ...Option) *Workflow {
	w := &Workflow{
		images:    images,
		extractor: extractor,
		gallery:   g,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func failed(msg string) Result {
	return Result{Message: msg}
}

// Enroll stores the photo as <label><ext> in the image store, extracts its template
// and upserts it into the gallery. The label is sanitized into a filename stem and
// that stem is the gallery label, so a later bootstrap reproduces the same gallery.
// On any extraction failure the stored photo is deleted and the gallery is untouched.
// With an AccountChecker the stem must also be unused, so re-enrollment over an
// existing label is only possible without one.
func (w *Workflow) Enroll(ctx context.Context, label, filename string, data []byte) Result {
	if w.accounts != nil {
		exists, err := w.accounts.Exists(ctx, label)
		if err != nil {
			w.logger.Error("account lookup failed", zap.String("label", label), zap.Error(err))
			return failed(MsgProcessingFailed)
		}
		if exists {
			return failed(MsgDuplicate)
		}
	}

	if _, err := biometric.FormatFromFilename(filename); err != nil {
		return failed(MsgInvalidFormat)
	}
	ext := strings.ToLower(filepath.Ext(filename))

	stem := facematch.SanitizeLabel(label)
	if stem == "" {
		return failed(MsgInvalidLabel)
	}
	name := stem + ext

	w.mu.Lock()
	defer w.mu.Unlock()

	// Different usernames can sanitize to one stem. An account-backed enrollment
	// must not take over a template or photo that is already on file.
	if w.accounts != nil {
		taken, err := w.stemTaken(stem)
		if err != nil {
			w.logger.Error("failed to check existing reference photos", zap.String("label", stem), zap.Error(err))
			return failed(MsgStorageFailed)
		}
		if taken {
			w.logger.Info("label already enrolled", zap.String("username", label), zap.String("label", stem))
			return failed(MsgDuplicate)
		}
	}

	path, err := w.images.Save(name, data)
	if err != nil {
		w.logger.Error("failed to store reference photo", zap.String("file", name), zap.Error(err))
		return failed(MsgStorageFailed)
	}

	emb, err := w.extractor.Extract(ctx, data)
	if err != nil {
		w.rollback(name)
		switch {
		case errors.Is(err, biometric.ErrNoFaceFound):
			w.logger.Info("no face in reference photo", zap.String("label", stem))
			return failed(MsgNoFace)
		case errors.Is(err, biometric.ErrInvalidImage):
			w.logger.Info("undecodable reference photo", zap.String("label", stem), zap.Error(err))
			return failed(MsgInvalidImage)
		default:
			w.logger.Error("face extraction failed", zap.String("label", stem), zap.Error(err))
			return failed(MsgProcessingFailed)
		}
	}

	replaced, err := w.gallery.Upsert(stem, emb)
	if err != nil {
		w.rollback(name)
		w.logger.Error("failed to add template", zap.String("label", stem), zap.Error(err))
		return failed(MsgProcessingFailed)
	}

	if err := w.images.RemoveSiblings(name); err != nil {
		w.logger.Warn("failed to remove stale reference photos", zap.String("label", stem), zap.Error(err))
	}

	w.logger.Info("identity enrolled",
		zap.String("label", stem),
		zap.String("path", path),
		zap.Bool("replaced", replaced),
	)
	return Result{
		Success:  true,
		Message:  MsgEnrolled,
		Label:    stem,
		Filename: name,
		Replaced: replaced,
	}
}

func (w *Workflow) stemTaken(stem string) (bool, error) {
	if w.gallery.Has(stem) {
		return true, nil
	}
	return w.images.HasStem(stem)
}

// Unenroll undoes a successful enrollment whose owner could not be registered:
// every template of the label leaves the gallery and the stored photo is deleted.
// Unsuccessful results are ignored.
func (w *Workflow) Unenroll(res Result) error {
	if !res.Success {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := w.gallery.Remove(res.Label)
	if err := w.images.Remove(res.Filename); err != nil {
		return fmt.Errorf("removing reference photo of %s: %w", res.Label, err)
	}
	w.logger.Info("identity unenrolled", zap.String("label", res.Label), zap.Int("templates", removed))
	return nil
}

func (w *Workflow) rollback(name string) {
	if err := w.images.Remove(name); err != nil {
		w.logger.Error("failed to remove rejected reference photo", zap.String("file", name), zap.Error(err))
	}
}
