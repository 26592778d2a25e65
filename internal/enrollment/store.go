package enrollment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/spyhole/internal/biometric"
)

// ImageStore persists reference photos of enrolled identities.
type ImageStore interface {
	// Save writes data under name, overwriting, and returns the stored path.
	Save(name string, data []byte) (string, error)
	// Remove deletes name. Removing a missing file is not an error.
	Remove(name string) error
	// RemoveSiblings deletes other image files with the same stem as keep.
	RemoveSiblings(keep string) error
	// HasStem reports whether an image file named stem plus an accepted extension exists.
	HasStem(stem string) (bool, error)
	Dir() string
}

// DiskStore keeps reference photos as flat files in one directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Save writes through a temporary file so a concurrent directory scan never sees a partial image.
func (s *DiskStore) Save(name string, data []byte) (string, error) {
	dst, err := s.path(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return dst, nil
}

func (s *DiskStore) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// images lists the image files in the store whose stem equals stem.
func (s *DiskStore) images(stem string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !biometric.IsImageFile(name) {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *DiskStore) HasStem(stem string) (bool, error) {
	names, err := s.images(stem)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

func (s *DiskStore) RemoveSiblings(keep string) error {
	names, err := s.images(strings.TrimSuffix(keep, filepath.Ext(keep)))
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if name == keep {
			continue
		}
		if err := s.Remove(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
