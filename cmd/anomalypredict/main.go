package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bdougie/flowvision/internal/analyzer"
	"github.com/bdougie/flowvision/internal/batch"
	"github.com/bdougie/flowvision/internal/config"
	"github.com/bdougie/flowvision/internal/extractor"
	"github.com/bdougie/flowvision/internal/flow"
	"github.com/bdougie/flowvision/internal/logger"
	"github.com/bdougie/flowvision/internal/predictor"
	"github.com/bdougie/flowvision/internal/storage"
)

const defaultFramesOutput = "output_frames"

func main() {
	ctx := context.Background()

	cfg, err := config.LoadAnomaly()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	exts := strings.Join(cfg.FrameExtensions, ",")
	flag.StringVar(&cfg.FramesDir, "frames", cfg.FramesDir, "directory of frame images")
	flag.StringVar(&cfg.VideoPath, "video", cfg.VideoPath, "video to extract frames from with ffmpeg")
	flag.IntVar(&cfg.FFmpegFPS, "fps", cfg.FFmpegFPS, "frames per second to extract from -video")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "anomaly model weights (.h5 or .json)")
	flag.StringVar(&cfg.ModelLayers, "layers", cfg.ModelLayers, "model layers as name:units:activation,...")
	flag.StringVar(&cfg.BatchLayout, "layout", cfg.BatchLayout, "batch layout: pair or window")
	flag.IntVar(&cfg.BatchWindow, "window", cfg.BatchWindow, "frame pairs per row with -layout window")
	flag.StringVar(&exts, "ext", exts, "comma separated frame file extensions")
	flag.BoolVar(&cfg.SortNumeric, "sort-numeric", cfg.SortNumeric, "order frames by trailing number")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory for predictions.json")
	flag.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "postgres URL for storing predictions")
	flag.BoolVar(&cfg.Progress, "progress", cfg.Progress, "show a progress bar")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.Parse()
	cfg.FrameExtensions = splitList(exts)

	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\nUsage: anomalypredict -frames path/to/frames [-model model.h5] [-output dir]\n", err)
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("anomaly prediction failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Anomaly, log *slog.Logger) error {
	layers, err := predictor.ParseLayers(cfg.ModelLayers)
	if err != nil {
		return err
	}
	layout, err := batch.ParseLayout(cfg.BatchLayout)
	if err != nil {
		return err
	}

	dir := cfg.FramesDir
	if cfg.VideoPath != "" {
		out := cfg.OutputDir
		if out == "" {
			out = defaultFramesOutput
		}
		dir, err = extractor.ExtractFrames(ctx, log, cfg.VideoPath, out, cfg.FFmpegFPS)
		if err != nil {
			return err
		}
	}

	runName := fmt.Sprintf("%s-%s", filepath.Base(filepath.Clean(dir)), uuid.NewString())

	store, err := openStorage(ctx, cfg, runName)
	if err != nil {
		return err
	}
	defer store.Close()

	var opts []flow.Option
	if cfg.Progress {
		opts = append(opts, flow.WithProgress(os.Stderr))
	}

	processor := analyzer.NewProcessor(
		flow.NewExtractor(flow.DefaultParams(), log, opts...),
		predictor.DenseLoader(cfg.ModelPath, layers),
		store,
		log,
		analyzer.Config{
			Load:   extractor.LoadOptions{Extensions: cfg.FrameExtensions, SortNumeric: cfg.SortNumeric},
			Layout: layout,
			Window: cfg.BatchWindow,
		},
	)

	report, err := processor.Run(ctx, runName, dir)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d frames, %d pairs, %d rows\n", report.Run, report.Frames, report.Pairs, report.Rows)
	if score, idx := report.MaxScore(); idx >= 0 {
		p := report.Predictions[idx]
		fmt.Printf("highest score %.4f at %s..%s\n", score, p.FirstFrame, p.LastFrame)
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Anomaly, runName string) (storage.Storage, error) {
	switch {
	case cfg.DatabaseURL != "":
		return storage.NewPostgresStorage(ctx, cfg.DatabaseURL, runName)
	case cfg.OutputDir != "":
		return storage.NewFileStorage(cfg.OutputDir, runName), nil
	default:
		return storage.Discard{}, nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
