//go:build !dlib

package biometric

import (
	"context"
	"errors"
)

// DlibExtractor stub type when built without the dlib tag (see dlib.go for real implementation).
type DlibExtractor struct{}

// NewDlibExtractor returns an error when built without the dlib tag.
func NewDlibExtractor(_ string) (*DlibExtractor, error) {
	return nil, errors.New("dlib extractor requires building with -tags dlib and the dlib libraries installed")
}

// Extract is never reachable because the stub cannot be constructed.
func (d *DlibExtractor) Extract(_ context.Context, _ []byte) (Embedding, error) {
	return nil, errors.New("dlib extractor not available")
}

// Close does nothing.
func (d *DlibExtractor) Close() error { return nil }
