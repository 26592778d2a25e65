package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/spyhole/internal/gallery"
	"github.com/kozaktomas/spyhole/internal/logging"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Load the known faces and list the enrolled labels",
	RunE:  runGallery,
}

func init() {
	rootCmd.AddCommand(galleryCmd)

	galleryCmd.Flags().Bool("json", false, "Output as JSON")
}

type galleryOutput struct {
	Dir     string   `json:"dir"`
	Files   int      `json:"files"`
	Loaded  int      `json:"loaded"`
	NoFace  int      `json:"no_face"`
	Failed  int      `json:"failed"`
	Dim     int      `json:"dim"`
	Labels  []string `json:"labels"`
	Elapsed string   `json:"elapsed"`
}

func runGallery(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	svc, err := newMonitor(ctx, cfg, nil, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	var loadOpts []gallery.LoadOption
	if !jsonOutput {
		loadOpts = append(loadOpts, progressOption("Extracting faces"))
	}
	stats, err := svc.Bootstrap(ctx, cfg.Storage.KnownDir, loadOpts...)
	if err != nil {
		return err
	}

	labels := svc.Labels()
	if jsonOutput {
		if labels == nil {
			labels = []string{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(galleryOutput{
			Dir:     cfg.Storage.KnownDir,
			Files:   stats.Files,
			Loaded:  stats.Loaded,
			NoFace:  stats.NoFace,
			Failed:  stats.Failed,
			Dim:     svc.EmbeddingDim(),
			Labels:  labels,
			Elapsed: stats.Duration.String(),
		})
	}

	printLoadStats(stats)
	if dim := svc.EmbeddingDim(); dim > 0 {
		fmt.Printf("Template dimension: %d\n", dim)
	}
	for i, label := range labels {
		fmt.Printf("%3d. %s\n", i+1, label)
	}
	return nil
}
