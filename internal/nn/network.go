// Package nn implements a small fully connected network for inference.
package nn

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned whenever tensor shapes disagree with the declared layers.
var ErrShape = errors.New("shape mismatch")

// ShapeError describes the offending tensor.
type ShapeError struct {
	Layer  string
	Tensor string
	Got    []int
	Want   []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s %s has shape %v, want %v", ErrShape, e.Layer, e.Tensor, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// LayerSpec declares one dense layer.
type LayerSpec struct {
	Name       string
	In, Out    int
	Activation Activation
}

// Dense is a fully connected layer computing act(x·Kernel + Bias).
type Dense struct {
	LayerSpec
	Kernel *mat.Dense // In×Out
	Bias   []float64  // Out
}

// Network is a stack of dense layers.
type Network struct {
	layers []*Dense
	index  map[string]int
}

// ClassifierSpec is the fixed classifier topology: 4→32 tanh, 32→3 log-softmax.
func ClassifierSpec() []LayerSpec {
	return []LayerSpec{
		{Name: "fc1", In: 4, Out: 32, Activation: Tanh},
		{Name: "fc2", In: 32, Out: 3, Activation: LogSoftmax},
	}
}

// New builds a zero-initialised network. Consecutive layers must chain.
func New(specs []LayerSpec) (*Network, error) {
	if len(specs) == 0 {
		return nil, errors.New("network needs at least one layer")
	}
	n := &Network{index: make(map[string]int, len(specs))}
	for i, s := range specs {
		if s.In <= 0 || s.Out <= 0 {
			return nil, fmt.Errorf("layer %q: sizes must be positive, got %d→%d", s.Name, s.In, s.Out)
		}
		if _, dup := n.index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate layer name %q", s.Name)
		}
		if i > 0 && specs[i-1].Out != s.In {
			return nil, &ShapeError{Layer: s.Name, Tensor: "input", Got: []int{s.In}, Want: []int{specs[i-1].Out}}
		}
		if s.Activation == "" {
			s.Activation = Linear
		}
		n.index[s.Name] = i
		n.layers = append(n.layers, &Dense{
			LayerSpec: s,
			Kernel:    mat.NewDense(s.In, s.Out, nil),
			Bias:      make([]float64, s.Out),
		})
	}
	return n, nil
}

// Layers returns the layer specs in order.
func (n *Network) Layers() []LayerSpec {
	specs := make([]LayerSpec, len(n.layers))
	for i, l := range n.layers {
		specs[i] = l.LayerSpec
	}
	return specs
}

// Layer returns the named layer or nil.
func (n *Network) Layer(name string) *Dense {
	i, ok := n.index[name]
	if !ok {
		return nil
	}
	return n.layers[i]
}

// InputDim is the width of the first layer.
func (n *Network) InputDim() int { return n.layers[0].In }

// OutputDim is the width of the last layer.
func (n *Network) OutputDim() int { return n.layers[len(n.layers)-1].Out }

// SetWeights replaces a layer's parameters. kernel is row-major In×Out.
// Shapes must match exactly.
func (n *Network) SetWeights(name string, kernel []float64, kernelShape []int, bias []float64) error {
	l := n.Layer(name)
	if l == nil {
		return fmt.Errorf("unknown layer %q", name)
	}
	want := []int{l.In, l.Out}
	if len(kernelShape) != 2 || kernelShape[0] != l.In || kernelShape[1] != l.Out || len(kernel) != l.In*l.Out {
		return &ShapeError{Layer: name, Tensor: "kernel", Got: kernelShape, Want: want}
	}
	if len(bias) != l.Out {
		return &ShapeError{Layer: name, Tensor: "bias", Got: []int{len(bias)}, Want: []int{l.Out}}
	}
	l.Kernel = mat.NewDense(l.In, l.Out, append([]float64(nil), kernel...))
	l.Bias = append([]float64(nil), bias...)
	return nil
}

// Forward runs every row of x through the network.
func (n *Network) Forward(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != n.InputDim() {
		return nil, &ShapeError{Layer: n.layers[0].Name, Tensor: "input", Got: []int{rows, cols}, Want: []int{rows, n.InputDim()}}
	}

	cur := x
	var out *mat.Dense
	for _, l := range n.layers {
		out = mat.NewDense(rows, l.Out, nil)
		out.Mul(cur, l.Kernel)
		for r := 0; r < rows; r++ {
			row := out.RawRowView(r)
			floats.Add(row, l.Bias)
			l.Activation.apply(row)
		}
		cur = out
	}
	return out, nil
}

// ForwardVec runs a single input vector through the network.
func (n *Network) ForwardVec(input []float64) ([]float64, error) {
	if len(input) != n.InputDim() {
		return nil, &ShapeError{Layer: n.layers[0].Name, Tensor: "input", Got: []int{len(input)}, Want: []int{n.InputDim()}}
	}
	out, err := n.Forward(mat.NewDense(1, len(input), append([]float64(nil), input...)))
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), out.RawRowView(0)...), nil
}

// ArgMax returns the index of the largest value; the first wins on ties.
// It returns -1 for an empty slice.
func ArgMax(v []float64) int {
	if len(v) == 0 {
		return -1
	}
	return floats.MaxIdx(v)
}
