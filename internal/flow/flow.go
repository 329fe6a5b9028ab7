// Package flow turns consecutive frame pairs into dense optical-flow feature vectors.
package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cheggaaa/pb/v3"
	"gocv.io/x/gocv"

	"github.com/bdougie/flowvision/internal/extractor"
)

// ErrFlow is returned when OpenCV produces no usable flow field.
var ErrFlow = errors.New("optical flow failed")

// Params are the Farneback estimator settings.
type Params struct {
	PyrScale   float64
	Levels     int
	WinSize    int
	Iterations int
	PolyN      int
	PolySigma  float64
	Flags      int
}

// DefaultParams returns the settings used for every feature extraction:
// pyramid scale 0.5, 3 levels, 15px window, 3 iterations, polyN 5, sigma 1.2, no flags.
func DefaultParams() Params {
	return Params{
		PyrScale:   0.5,
		Levels:     3,
		WinSize:    15,
		Iterations: 3,
		PolyN:      5,
		PolySigma:  1.2,
		Flags:      0,
	}
}

// Feature is the flattened flow field between two frames. Values holds
// dx, dy interleaved per pixel in row-major order.
type Feature struct {
	From   string
	To     string
	Values []float32
}

// Extractor computes flow features with fixed Farneback parameters.
type Extractor struct {
	params   Params
	logger   *slog.Logger
	progress io.Writer
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithProgress renders a progress bar for the frame pairs to w.
func WithProgress(w io.Writer) Option {
	return func(e *Extractor) { e.progress = w }
}

// NewExtractor creates an Extractor.
func NewExtractor(params Params, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{params: params, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns one feature per consecutive frame pair, so N frames give
// N-1 features. Fewer than two frames give none.
func (e *Extractor) Extract(ctx context.Context, frames extractor.Frames) ([]Feature, error) {
	if len(frames) < 2 {
		e.logger.Debug("not enough frames for flow", "frames", len(frames))
		return nil, nil
	}

	pairs := len(frames) - 1
	var bar *pb.ProgressBar
	if e.progress != nil {
		bar = pb.New(pairs).SetWriter(e.progress).Start()
		defer bar.Finish()
	}

	features := make([]Feature, 0, pairs)
	for i := 0; i < pairs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prev, next := frames[i], frames[i+1]
		if err := extractor.SameSize(prev, next); err != nil {
			return nil, err
		}

		values, err := e.Pair(prev.Mat, next.Mat)
		if err != nil {
			return nil, fmt.Errorf("flow %s -> %s: %w", prev.Name, next.Name, err)
		}
		features = append(features, Feature{From: prev.Name, To: next.Name, Values: values})

		if bar != nil {
			bar.Increment()
		}
	}

	e.logger.Debug("flow features extracted", "pairs", len(features), "dim", len(features[0].Values))
	return features, nil
}

// Pair computes the flattened flow field from prev to next.
func (e *Extractor) Pair(prev, next gocv.Mat) ([]float32, error) {
	flow := gocv.NewMat()
	defer flow.Close()

	p := e.params
	gocv.CalcOpticalFlowFarneback(prev, next, &flow,
		p.PyrScale, p.Levels, p.WinSize, p.Iterations, p.PolyN, p.PolySigma, p.Flags)

	if flow.Empty() {
		return nil, ErrFlow
	}
	if flow.Type() != gocv.MatTypeCV32FC2 {
		return nil, fmt.Errorf("%w: unexpected flow type %v", ErrFlow, flow.Type())
	}

	data, err := flow.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFlow, err)
	}

	// data aliases the Mat buffer released by the deferred Close.
	values := make([]float32, len(data))
	copy(values, data)
	return values, nil
}
