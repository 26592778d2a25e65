package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/spyhole/internal/gallery"
	"github.com/kozaktomas/spyhole/internal/logging"
	"github.com/kozaktomas/spyhole/internal/monitor"
)

var matchCmd = &cobra.Command{
	Use:   "match <image>",
	Short: "Match a single image against the known faces",
	Long: `Load the known faces, run one probe image through the matcher and print the verdict.
The probe is stored in a temporary directory unless --keep is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Float64("threshold", 0, "Override the match threshold")
	matchCmd.Flags().Bool("keep", false, "Store the probe in the uploads directory")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runMatch(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Recognition.Threshold = threshold
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	var probes monitor.ProbeStore
	if !mustGetBool(cmd, "keep") {
		dir, err := os.MkdirTemp("", "spyhole-probe-")
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(dir)
		if probes, err = monitor.NewDiskProbeStore(dir); err != nil {
			return err
		}
	}

	ctx := context.Background()
	svc, err := newMonitor(ctx, cfg, probes, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	var loadOpts []gallery.LoadOption
	if !jsonOutput {
		loadOpts = append(loadOpts, progressOption("Loading known faces"))
	}
	stats, err := svc.Bootstrap(ctx, cfg.Storage.KnownDir, loadOpts...)
	if err != nil {
		return err
	}

	result, err := svc.SubmitProbe(ctx, data)
	if err != nil {
		return fmt.Errorf("matching %s: %w", args[0], err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printLoadStats(stats)
	if result.Recognized {
		fmt.Printf("Recognized: %s (distance %.4f, threshold %.2f)\n", result.Subject, result.Distance, svc.Threshold())
	} else {
		fmt.Printf("Not recognized: %s\n", result.Subject)
		if result.Distance > 0 {
			fmt.Printf("  Closest distance %.4f, threshold %.2f\n", result.Distance, svc.Threshold())
		}
	}
	return nil
}
