package gallery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/spyhole/internal/biometric"
	"github.com/kozaktomas/spyhole/internal/constants"
)

// LoadStats summarizes one directory load.
type LoadStats struct {
	Files    int // image files considered
	Loaded   int
	NoFace   int
	Failed   int // decode or extractor errors
	Duration time.Duration
}

// LoadProgress is reported after every processed file.
type LoadProgress struct {
	Done  int
	Total int
	File  string
}

type loadOptions struct {
	workers  int
	logger   *zap.Logger
	progress func(LoadProgress)
}

// LoadOption configures LoadAll.
type LoadOption func(*loadOptions)

// WithWorkers bounds the number of concurrent extractions.
func WithWorkers(n int) LoadOption {
	return func(o *loadOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger *zap.Logger) LoadOption {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after each file. Calls are serialized.
func WithProgress(fn func(LoadProgress)) LoadOption {
	return func(o *loadOptions) {
		o.progress = fn
	}
}

type loadResult struct {
	label string
	emb   biometric.Embedding
	err   error
}

// LoadAll extracts a template from every .jpg, .jpeg and .png file in dir and
// appends them in filename order, using the filename stem as label.
// Files without a face or that fail to decode are logged and skipped.
// A missing directory loads nothing.
func (g *Gallery) LoadAll(ctx context.Context, dir string, extractor biometric.Extractor, opts ...LoadOption) (LoadStats, error) {
	o := loadOptions{
		workers: constants.DefaultBootstrapWorkers,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	var stats LoadStats

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("known faces directory does not exist", zap.String("dir", dir))
			return stats, nil
		}
		return stats, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range dirEntries {
		if e.IsDir() || !biometric.IsImageFile(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	stats.Files = len(files)

	results := make([]loadResult, len(files))
	semaphore := make(chan struct{}, o.workers)
	var wg sync.WaitGroup
	var progressMu sync.Mutex
	done := 0

	for i, name := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				results[idx] = loadResult{err: ctx.Err()}
				return
			}
			defer func() { <-semaphore }()

			res := loadResult{label: strings.TrimSuffix(name, filepath.Ext(name))}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				res.err = err
			} else {
				res.emb, res.err = extractor.Extract(ctx, data)
			}
			results[idx] = res

			if o.progress != nil {
				progressMu.Lock()
				done++
				o.progress(LoadProgress{Done: done, Total: len(files), File: name})
				progressMu.Unlock()
			}
		}(i, name)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	for i, res := range results {
		switch {
		case res.err == nil:
			if err := g.Append(res.label, res.emb); err != nil {
				stats.Failed++
				o.logger.Warn("skipping known face", zap.String("file", files[i]), zap.Error(err))
				continue
			}
			stats.Loaded++
		case errors.Is(res.err, biometric.ErrNoFaceFound):
			stats.NoFace++
			o.logger.Warn("no face found in known picture", zap.String("file", files[i]))
		default:
			stats.Failed++
			o.logger.Warn("skipping known face", zap.String("file", files[i]), zap.Error(res.err))
		}
	}

	stats.Duration = time.Since(start)
	o.logger.Info("known faces loaded",
		zap.String("dir", dir),
		zap.Int("files", stats.Files),
		zap.Int("loaded", stats.Loaded),
		zap.Int("no_face", stats.NoFace),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}
