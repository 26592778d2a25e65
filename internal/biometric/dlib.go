//go:build dlib

package biometric

import (
	"context"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"
)

// DlibExtractor runs dlib's ResNet face recognition model in-process through go-face.
// It produces 128-dimensional descriptors.
type DlibExtractor struct {
	rec *face.Recognizer
	mu  sync.Mutex
}

// NewDlibExtractor loads the dlib models (shape predictor, recognition and CNN detector)
// from modelsDir.
func NewDlibExtractor(modelsDir string) (*DlibExtractor, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading models from %s: %w", modelsDir, err)
	}
	return &DlibExtractor{rec: rec}, nil
}

// Extract decodes the image and returns the descriptor of the first detected face.
func (d *DlibExtractor) Extract(ctx context.Context, data []byte) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// go-face only reads JPEG.
	jpegData, err := EncodeJPEG(data)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	faces, err := d.rec.Recognize(jpegData)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("recognizing faces: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceFound
	}

	desc := faces[0].Descriptor
	emb := make(Embedding, len(desc))
	copy(emb, desc[:])
	return emb, nil
}

// Close frees the recognizer.
func (d *DlibExtractor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rec.Close()
	return nil
}
