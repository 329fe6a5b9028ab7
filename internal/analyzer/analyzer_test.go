package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bdougie/flowvision/internal/batch"
	"github.com/bdougie/flowvision/internal/extractor"
	"github.com/bdougie/flowvision/internal/flow"
	"github.com/bdougie/flowvision/internal/frametest"
	"github.com/bdougie/flowvision/internal/nn"
	"github.com/bdougie/flowvision/internal/predictor"
	"github.com/bdougie/flowvision/internal/storage"
	"github.com/bdougie/flowvision/internal/weights"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rowSum predicts the sum of each row.
type rowSum struct {
	calls int
}

func (m *rowSum) Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	m.calls++
	r, _ := x.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, mat.Sum(x.RowView(i)))
	}
	return out, nil
}

func writeFrames(t *testing.T, dir string, w, h int, shifts ...int) {
	t.Helper()
	for i, s := range shifts {
		frametest.Write(t, dir, string(rune('a'+i))+".png", w, h, s)
	}
}

func TestProcessorRunPerPair(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 24, 16, 0, 1, 2, 3)

	model := &rowSum{}
	var gotDim int
	load := func(dim int) (predictor.Predictor, error) {
		gotDim = dim
		return model, nil
	}
	out := t.TempDir()
	store := storage.NewFileStorage(out, "run")

	p := NewProcessor(flow.NewExtractor(flow.DefaultParams(), testLogger()), load, store, testLogger(), Config{Layout: batch.PerPair})
	report, err := p.Run(context.Background(), "run", dir)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Frames)
	assert.Equal(t, 3, report.Pairs)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2*24*16, gotDim)
	assert.Equal(t, 1, model.calls)
	require.Len(t, report.Predictions, 3)
	assert.Equal(t, "a.png", report.Predictions[0].FirstFrame)
	assert.Equal(t, "d.png", report.Predictions[2].LastFrame)

	saved, err := storage.ReadResults(store.Path())
	require.NoError(t, err)
	assert.Equal(t, report.Predictions, saved)
}

func TestProcessorRunWindow(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 16, 16, 0, 1, 2, 3, 4, 5)

	var gotDim int
	load := func(dim int) (predictor.Predictor, error) {
		gotDim = dim
		return &rowSum{}, nil
	}
	p := NewProcessor(flow.NewExtractor(flow.DefaultParams(), testLogger()), load, nil, testLogger(),
		Config{Layout: batch.Window, Window: 2})

	report, err := p.Run(context.Background(), "run", dir)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Pairs)
	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 2*2*16*16, gotDim)
	assert.Equal(t, 0, report.Predictions[0].Index)
	assert.Equal(t, "c.png", report.Predictions[0].LastFrame)
}

func TestProcessorEmptyDirectory(t *testing.T) {
	load := func(int) (predictor.Predictor, error) {
		t.Fatal("model must not be loaded without frames")
		return nil, nil
	}
	p := NewProcessor(flow.NewExtractor(flow.DefaultParams(), testLogger()), load, nil, testLogger(), Config{})

	report, err := p.Run(context.Background(), "run", t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, report.Frames)
	assert.Zero(t, report.Pairs)
	assert.Empty(t, report.Predictions)
}

func TestProcessorDenseModelFromDisk(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 12, 10, 0, 0, 0)

	defs := []predictor.LayerDef{{Name: "dense", Units: 4, Activation: nn.ReLU}, {Name: "dense_1", Units: 1, Activation: nn.Sigmoid}}
	net, err := nn.New(predictor.Specs(defs, 2*12*10))
	require.NoError(t, err)
	modelPath := filepath.Join(t.TempDir(), "model.h5")
	require.NoError(t, weights.Save(modelPath, net))

	p := NewProcessor(flow.NewExtractor(flow.DefaultParams(), testLogger()),
		predictor.DenseLoader(modelPath, defs), nil, testLogger(), Config{})
	report, err := p.Run(context.Background(), "run", dir)
	require.NoError(t, err)

	require.Len(t, report.Predictions, 2)
	for _, pred := range report.Predictions {
		assert.InDelta(t, 0.5, pred.Score, 1e-6)
	}
}

func TestProcessorModelShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 12, 10, 0, 1)

	defs := []predictor.LayerDef{{Name: "dense", Units: 1}}
	net, err := nn.New(predictor.Specs(defs, 99))
	require.NoError(t, err)
	modelPath := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, weights.Save(modelPath, net))

	p := NewProcessor(flow.NewExtractor(flow.DefaultParams(), testLogger()),
		predictor.DenseLoader(modelPath, defs), nil, testLogger(), Config{})
	_, err = p.Run(context.Background(), "run", dir)
	assert.ErrorIs(t, err, nn.ErrShape)
}

func TestProcessorDecodeFailure(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 12, 10, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.jpg"), []byte("garbage"), 0644))

	p := NewProcessor(flow.NewExtractor(flow.DefaultParams(), testLogger()), nil, nil, testLogger(), Config{})
	_, err := p.Run(context.Background(), "run", dir)
	assert.True(t, errors.Is(err, extractor.ErrDecode))
}
