package predictor

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bdougie/flowvision/internal/nn"
	"github.com/bdougie/flowvision/internal/weights"
)

func TestParseLayers(t *testing.T) {
	defs, err := ParseLayers("dense:128:relu, dense_1:1:sigmoid")
	require.NoError(t, err)
	assert.Equal(t, []LayerDef{
		{Name: "dense", Units: 128, Activation: nn.ReLU},
		{Name: "dense_1", Units: 1, Activation: nn.Sigmoid},
	}, defs)

	defs, err = ParseLayers("out:2")
	require.NoError(t, err)
	assert.Equal(t, nn.Linear, defs[0].Activation)

	for _, bad := range []string{"", "dense", "dense:x:relu", "dense:0", "dense:4:swish", "a:1:b:c"} {
		_, err := ParseLayers(bad)
		assert.Error(t, err, bad)
	}
}

func TestSpecsChain(t *testing.T) {
	specs := Specs([]LayerDef{{"a", 8, nn.ReLU}, {"b", 2, nn.Softmax}}, 100)
	assert.Equal(t, []nn.LayerSpec{
		{Name: "a", In: 100, Out: 8, Activation: nn.ReLU},
		{Name: "b", In: 8, Out: 2, Activation: nn.Softmax},
	}, specs)
}

func TestLoadDenseModelAndPredict(t *testing.T) {
	defs := []LayerDef{{"dense", 3, nn.ReLU}, {"dense_1", 1, nn.Sigmoid}}
	net, err := nn.New(Specs(defs, 4))
	require.NoError(t, err)
	require.NoError(t, weights.Zero(net))

	path := filepath.Join(t.TempDir(), "model.h5")
	require.NoError(t, weights.Save(path, net))

	model, err := LoadDenseModel(path, defs, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, model.InputDim())
	assert.Equal(t, 1, model.OutputDim())

	out, err := model.Predict(context.Background(), mat.NewDense(2, 4, []float64{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, err)
	r, c := out.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 1, c)
	assert.InDelta(t, 0.5, out.At(0, 0), 1e-12)
	assert.False(t, math.IsNaN(out.At(1, 0)))
}

func TestLoadDenseModelWrongInputDim(t *testing.T) {
	defs := []LayerDef{{"dense", 3, nn.ReLU}}
	net, err := nn.New(Specs(defs, 4))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.h5")
	require.NoError(t, weights.Save(path, net))

	_, err = LoadDenseModel(path, defs, 5)
	assert.ErrorIs(t, err, nn.ErrShape)
}

func TestPredictCancelled(t *testing.T) {
	net, err := nn.New([]nn.LayerSpec{{Name: "d", In: 1, Out: 1}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewDenseModel(net).Predict(ctx, mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, context.Canceled)
}
