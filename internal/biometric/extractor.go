package biometric

import (
	"context"
	"fmt"

	"github.com/kozaktomas/spyhole/internal/config"
)

// Backend names accepted by NewExtractor.
const (
	BackendService = "service"
	BackendDlib    = "dlib"
)

// Extractor converts raw image bytes into a single face embedding.
// Implementations return ErrNoFaceFound when no face is detected and use the
// first detected face when there are several. Extract has no side effects.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Embedding, error)
	Close() error
}

// Pinger is implemented by extractors that depend on a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewExtractor builds the configured extractor and verifies that it is usable.
// A failure here means the process cannot recognize faces at all and should not start.
func NewExtractor(ctx context.Context, cfg *config.RecognitionConfig) (Extractor, error) {
	var (
		ext Extractor
		err error
	)
	switch cfg.Backend {
	case "", BackendService:
		ext = NewServiceExtractor(cfg.EmbeddingURL, cfg.MaxImageSize)
	case BackendDlib:
		ext, err = NewDlibExtractor(cfg.ModelsDir)
		if err != nil {
			return nil, fmt.Errorf("initializing dlib extractor: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Backend)
	}

	if p, ok := ext.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			_ = ext.Close()
			return nil, fmt.Errorf("extractor not reachable: %w", err)
		}
	}
	return ext, nil
}
