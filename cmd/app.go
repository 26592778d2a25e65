package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/kozaktomas/spyhole/internal/biometric"
	"github.com/kozaktomas/spyhole/internal/config"
	"github.com/kozaktomas/spyhole/internal/enrollment"
	"github.com/kozaktomas/spyhole/internal/gallery"
	"github.com/kozaktomas/spyhole/internal/monitor"

	// Database backends register themselves with database.Open.
	_ "github.com/kozaktomas/spyhole/internal/database/postgres"
	_ "github.com/kozaktomas/spyhole/internal/database/sqlite"
)

// newMonitor initializes the extractor and builds the recognition service.
// Failing to reach the extractor is fatal.
func newMonitor(ctx context.Context, cfg *config.Config, probes monitor.ProbeStore, logger *zap.Logger, checker enrollment.AccountChecker) (*monitor.Service, error) {
	ext, err := biometric.NewExtractor(ctx, &cfg.Recognition)
	if err != nil {
		return nil, fmt.Errorf("initializing face extractor: %w", err)
	}

	images, err := enrollment.NewDiskStore(cfg.Storage.KnownDir)
	if err != nil {
		_ = ext.Close()
		return nil, err
	}

	if probes == nil {
		store, err := monitor.NewDiskProbeStore(cfg.Storage.UploadDir)
		if err != nil {
			_ = ext.Close()
			return nil, err
		}
		probes = store
	}

	opts := []monitor.Option{
		monitor.WithThreshold(cfg.Recognition.Threshold),
		monitor.WithWorkers(cfg.Recognition.Workers),
		monitor.WithLogger(logger),
	}
	if checker != nil {
		opts = append(opts, monitor.WithAccountChecker(checker))
	}
	return monitor.New(ext, images, probes, opts...), nil
}

// progressOption renders bootstrap progress as a terminal progress bar.
func progressOption(description string) gallery.LoadOption {
	var bar *progressbar.ProgressBar
	return gallery.WithProgress(func(p gallery.LoadProgress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(p.Done)
		if p.Done == p.Total {
			_ = bar.Finish()
			fmt.Println()
		}
	})
}

func printLoadStats(stats gallery.LoadStats) {
	fmt.Printf("Loaded %d of %d known faces in %s", stats.Loaded, stats.Files, stats.Duration.Round(time.Millisecond))
	if stats.NoFace > 0 || stats.Failed > 0 {
		fmt.Printf(" (%d without a face, %d failed)", stats.NoFace, stats.Failed)
	}
	fmt.Println()
}
