// Package classify runs the fixed three-class classifier on a single input row.
package classify

import (
	"fmt"
	"io"

	"github.com/bdougie/flowvision/internal/nn"
	"github.com/bdougie/flowvision/internal/weights"
)

// DefaultInput is the sample scored when no input is given.
var DefaultInput = []float64{4.9, 2.4, 3.3, 1.0}

// Result is the raw log-probabilities and the chosen class.
type Result struct {
	Output []float64
	Class  int
}

// Options select the weights and input for a run.
type Options struct {
	WeightsPath string
	// Zero skips WeightsPath and uses all-zero parameters.
	Zero  bool
	Input []float64
}

// Run builds the classifier, loads its weights and scores one input,
// writing the output vector and class index to w.
func Run(opts Options, w io.Writer) (*Result, error) {
	net, err := nn.New(nn.ClassifierSpec())
	if err != nil {
		return nil, err
	}

	if opts.Zero {
		err = weights.Zero(net)
	} else {
		err = weights.Load(opts.WeightsPath, net)
	}
	if err != nil {
		return nil, err
	}

	input := opts.Input
	if len(input) == 0 {
		input = DefaultInput
	}

	out, err := net.ForwardVec(input)
	if err != nil {
		return nil, err
	}
	res := &Result{Output: out, Class: nn.ArgMax(out)}

	if _, err := fmt.Fprintf(w, "output: %v\nclass: %d\n", res.Output, res.Class); err != nil {
		return nil, err
	}
	return res, nil
}
