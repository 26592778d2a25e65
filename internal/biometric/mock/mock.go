// Package mock provides a deterministic biometric.Extractor for tests.
package mock

import (
	"context"
	"crypto/sha256"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/spyhole/internal/biometric"
)

// Extractor maps exact image bytes to embeddings. Unknown but decodable images
// have no face; undecodable bytes yield biometric.ErrInvalidImage.
type Extractor struct {
	mu    sync.RWMutex
	faces map[[32]byte]biometric.Embedding

	// Error injection
	ExtractError error
	// Delay is slept before every extraction
	Delay time.Duration

	calls  atomic.Int64
	closed atomic.Bool
}

// NewExtractor creates an empty mock extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		faces: make(map[[32]byte]biometric.Embedding),
	}
}

// AddFace registers the embedding returned for the given image bytes.
func (m *Extractor) AddFace(data []byte, emb biometric.Embedding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces[sha256.Sum256(data)] = emb.Clone()
}

// Extract returns the registered embedding, biometric.ErrInvalidImage or biometric.ErrNoFaceFound.
func (m *Extractor) Extract(ctx context.Context, data []byte) (biometric.Embedding, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.ExtractError != nil {
		return nil, m.ExtractError
	}
	m.mu.RLock()
	emb, ok := m.faces[sha256.Sum256(data)]
	m.mu.RUnlock()
	if ok {
		return emb.Clone(), nil
	}
	if _, err := biometric.ValidateImage(data); err != nil {
		return nil, err
	}
	return nil, biometric.ErrNoFaceFound
}

// Calls returns how many times Extract was invoked.
func (m *Extractor) Calls() int {
	return int(m.calls.Load())
}

// Closed reports whether Close was called.
func (m *Extractor) Closed() bool {
	return m.closed.Load()
}

// Close marks the extractor closed.
func (m *Extractor) Close() error {
	m.closed.Store(true)
	return nil
}
