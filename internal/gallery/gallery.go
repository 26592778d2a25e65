// Package gallery holds the in-memory set of enrolled face templates.
package gallery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/spyhole/internal/biometric"
)

// ErrEmptyEmbedding is returned when an entry without any dimensions is added.
var ErrEmptyEmbedding = errors.New("empty embedding")

// Entry pairs an identity label with one of its templates.
type Entry struct {
	Label     string
	Embedding biometric.Embedding
}

// Gallery keeps labels and embeddings in two index-aligned slices.
// All embeddings share one dimension, fixed by New or by the first entry.
// A label may appear more than once.
type Gallery struct {
	mu         sync.RWMutex
	dim        int
	labels     []string
	embeddings []biometric.Embedding
}

// New creates an empty gallery. A dim of 0 lets the first added entry decide it.
func New(dim int) *Gallery {
	return &Gallery{
		dim:        dim,
		labels:     make([]string, 0),
		embeddings: make([]biometric.Embedding, 0),
	}
}

// checkDim must be called with the write lock held.
func (g *Gallery) checkDim(emb biometric.Embedding) error {
	if len(emb) == 0 {
		return ErrEmptyEmbedding
	}
	if g.dim == 0 {
		g.dim = len(emb)
		return nil
	}
	if len(emb) != g.dim {
		return fmt.Errorf("%w: got %d, expected %d", biometric.ErrDimensionMismatch, len(emb), g.dim)
	}
	return nil
}

// Append adds an entry at the end without checking for an existing label.
func (g *Gallery) Append(label string, emb biometric.Embedding) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkDim(emb); err != nil {
		return err
	}
	g.labels = append(g.labels, label)
	g.embeddings = append(g.embeddings, emb.Clone())
	return nil
}

// Upsert replaces the embedding of the first entry carrying label, keeping its
// position, or appends a new entry when the label is unknown.
// It reports whether an existing entry was replaced.
func (g *Gallery) Upsert(label string, emb biometric.Embedding) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkDim(emb); err != nil {
		return false, err
	}
	for i, l := range g.labels {
		if l == label {
			g.embeddings[i] = emb.Clone()
			return true, nil
		}
	}
	g.labels = append(g.labels, label)
	g.embeddings = append(g.embeddings, emb.Clone())
	return false, nil
}

// IsEmpty reports whether the gallery has no entries.
func (g *Gallery) IsEmpty() bool {
	return g.Len() == 0
}

// Len returns the number of entries.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.labels)
}

// Dim returns the embedding dimension, or 0 before the first entry of an unsized gallery.
func (g *Gallery) Dim() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dim
}

// Labels returns the labels in insertion order.
func (g *Gallery) Labels() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

// Snapshot returns a consistent copy of all entries in insertion order.
// Stored embeddings are never mutated in place, so the copy shares them.
func (g *Gallery) Snapshot() []Entry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Entry, len(g.labels))
	for i := range g.labels {
		out[i] = Entry{Label: g.labels[i], Embedding: g.embeddings[i]}
	}
	return out
}

// Has reports whether any entry carries label.
func (g *Gallery) Has(label string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, l := range g.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Remove deletes every entry carrying label, keeping the order of the rest,
// and returns how many were removed.
func (g *Gallery) Remove(label string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	labels := make([]string, 0, len(g.labels))
	embeddings := make([]biometric.Embedding, 0, len(g.embeddings))
	for i, l := range g.labels {
		if l == label {
			continue
		}
		labels = append(labels, l)
		embeddings = append(embeddings, g.embeddings[i])
	}
	removed := len(g.labels) - len(labels)
	g.labels = labels
	g.embeddings = embeddings
	return removed
}
