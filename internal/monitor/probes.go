package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/spyhole/internal/constants"
)

// ProbeStore keeps every probe image received from the capture device.
type ProbeStore interface {
	// Save stores data under a name derived from now and returns that name.
	Save(now time.Time, data []byte) (string, error)
	// Path resolves a stored probe name to a file path, rejecting anything outside the store.
	Path(name string) (string, error)
}

// ErrProbeNotFound is returned by Path for names that do not exist in the store.
var ErrProbeNotFound = errors.New("probe image not found")

// DiskProbeStore writes probes as image_<YYYYmmdd_HHMMSS>.jpg, adding a numeric
// suffix when several probes arrive within the same second.
type DiskProbeStore struct {
	dir string
}

// NewDiskProbeStore creates the directory if needed.
func NewDiskProbeStore(dir string) (*DiskProbeStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &DiskProbeStore{dir: dir}, nil
}

func (s *DiskProbeStore) Save(now time.Time, data []byte) (string, error) {
	base := constants.ProbeFilePrefix + now.Format(constants.ProbeTimestampLayout)
	for i := 0; i < 1000; i++ {
		name := base + ".jpg"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.jpg", base, i)
		}
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create probe file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return "", fmt.Errorf("failed to write probe file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write probe file: %w", err)
		}
		return name, nil
	}
	return "", fmt.Errorf("too many probes for %s", base)
}

func (s *DiskProbeStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrProbeNotFound
	}
	p := filepath.Join(s.dir, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", ErrProbeNotFound
	}
	return p, nil
}
