// Package predictor wraps a pretrained dense model behind a batch inference call.
package predictor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/bdougie/flowvision/internal/nn"
	"github.com/bdougie/flowvision/internal/weights"
)

// Predictor runs inference over every row of a batch.
type Predictor interface {
	Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error)
}

// LayerDef declares a layer whose input width follows from the previous layer.
type LayerDef struct {
	Name       string
	Units      int
	Activation nn.Activation
}

// ParseLayers reads "name:units:activation" definitions separated by commas,
// e.g. "dense:128:relu,dense_1:1:sigmoid". The activation may be omitted.
func ParseLayers(s string) ([]LayerDef, error) {
	var defs []LayerDef
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("layer %q: want name:units[:activation]", part)
		}
		units, err := strconv.Atoi(fields[1])
		if err != nil || units <= 0 {
			return nil, fmt.Errorf("layer %q: invalid units %q", part, fields[1])
		}
		def := LayerDef{Name: fields[0], Units: units, Activation: nn.Linear}
		if len(fields) == 3 {
			if def.Activation, err = nn.ParseActivation(fields[2]); err != nil {
				return nil, fmt.Errorf("layer %q: %w", part, err)
			}
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no layers defined")
	}
	return defs, nil
}

// Specs chains the definitions starting from inputDim.
func Specs(defs []LayerDef, inputDim int) []nn.LayerSpec {
	specs := make([]nn.LayerSpec, len(defs))
	in := inputDim
	for i, d := range defs {
		specs[i] = nn.LayerSpec{Name: d.Name, In: in, Out: d.Units, Activation: d.Activation}
		in = d.Units
	}
	return specs
}

// DenseModel is a Predictor backed by an nn.Network.
type DenseModel struct {
	net *nn.Network
}

// NewDenseModel wraps an already loaded network.
func NewDenseModel(net *nn.Network) *DenseModel {
	return &DenseModel{net: net}
}

// LoadDenseModel builds the declared network for inputs of width inputDim and
// loads its weights from path.
func LoadDenseModel(path string, defs []LayerDef, inputDim int) (*DenseModel, error) {
	net, err := nn.New(Specs(defs, inputDim))
	if err != nil {
		return nil, err
	}
	if err := weights.Load(path, net); err != nil {
		return nil, err
	}
	return NewDenseModel(net), nil
}

// InputDim is the row width the model accepts.
func (m *DenseModel) InputDim() int { return m.net.InputDim() }

// OutputDim is the width of each prediction row.
func (m *DenseModel) OutputDim() int { return m.net.OutputDim() }

// Predict implements Predictor.
func (m *DenseModel) Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.net.Forward(x)
}

// Loader builds a Predictor once the batch row width is known.
type Loader func(inputDim int) (Predictor, error)

// DenseLoader returns a Loader for the weights at path with the given layers.
func DenseLoader(path string, defs []LayerDef) Loader {
	return func(inputDim int) (Predictor, error) {
		return LoadDenseModel(path, defs, inputDim)
	}
}
