package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/bdougie/flowvision/internal/batch"
	"github.com/bdougie/flowvision/internal/extractor"
	"github.com/bdougie/flowvision/internal/flow"
	"github.com/bdougie/flowvision/internal/models"
	"github.com/bdougie/flowvision/internal/predictor"
	"github.com/bdougie/flowvision/internal/storage"
)

// FeatureExtractor turns an ordered frame sequence into per-pair features.
type FeatureExtractor interface {
	Extract(ctx context.Context, frames extractor.Frames) ([]flow.Feature, error)
}

// Config holds the per-run pipeline settings.
type Config struct {
	Load   extractor.LoadOptions
	Layout batch.Layout
	Window int
}

// Processor runs the frames → flow → batch → model pipeline for one directory.
type Processor struct {
	features FeatureExtractor
	load     predictor.Loader
	storage  storage.Storage
	logger   *slog.Logger
	cfg      Config
}

// NewProcessor creates a Processor. A nil storage discards results.
func NewProcessor(features FeatureExtractor, load predictor.Loader, store storage.Storage, logger *slog.Logger, cfg Config) *Processor {
	if store == nil {
		store = storage.Discard{}
	}
	return &Processor{
		features: features,
		load:     load,
		storage:  store,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run predicts over the frames in dir and returns one prediction per batch row.
// A directory without frames produces an empty report and never loads the model.
func (p *Processor) Run(ctx context.Context, run, dir string) (*models.Report, error) {
	start := time.Now()
	log := p.logger.With("run", run, "dir", dir)

	frames, err := extractor.LoadFrames(ctx, dir, p.cfg.Load)
	if err != nil {
		return nil, err
	}
	defer frames.Close()

	report := &models.Report{Run: run, Frames: len(frames)}
	if len(frames) > 0 {
		log.Info("frames loaded", "frames", len(frames), "width", frames[0].Width(), "height", frames[0].Height())
	} else {
		log.Warn("no frames found")
	}

	features, err := p.features.Extract(ctx, frames)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	report.Pairs = len(features)

	b, err := batch.Build(features, p.cfg.Layout, p.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("build batch: %w", err)
	}
	report.Rows = b.Rows()
	report.Dropped = b.Dropped
	if b.Dropped > 0 {
		log.Warn("frame pairs left out of the last window", "dropped", b.Dropped, "window", p.cfg.Window)
	}
	if b.Rows() == 0 {
		return report, nil
	}

	model, err := p.load(b.Cols())
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	out, err := model.Predict(ctx, b.Matrix)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if r, c := out.Dims(); r != b.Rows() || c == 0 {
		return nil, fmt.Errorf("predict: model returned %dx%d for %d rows", r, c, b.Rows())
	}

	report.Predictions = toPredictions(b, out)
	for _, pred := range report.Predictions {
		if err := p.storage.AddResult(ctx, pred); err != nil {
			return nil, err
		}
	}
	if err := p.storage.Flush(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush final results: %w", err)
	}

	score, idx := report.MaxScore()
	log.Info("prediction complete",
		"pairs", report.Pairs,
		"rows", report.Rows,
		"max_score", score,
		"max_span", report.Predictions[idx].FirstFrame+".."+report.Predictions[idx].LastFrame,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return report, nil
}

func toPredictions(b *batch.Batch, out *mat.Dense) []models.Prediction {
	preds := make([]models.Prediction, b.Rows())
	for r := range preds {
		row := out.RawRowView(r)
		output := make([]float32, len(row))
		for i, v := range row {
			output[i] = float32(v)
		}
		preds[r] = models.Prediction{
			Index:      r,
			FirstFrame: b.Spans[r].First,
			LastFrame:  b.Spans[r].Last,
			Output:     output,
			Score:      output[0],
		}
	}
	return preds
}
