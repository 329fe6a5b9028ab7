package weights

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bdougie/flowvision/internal/nn"
)

type stateDict map[string]json.RawMessage

func loadJSON(path string, net *nn.Network) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var state stateDict
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal state dict: %w", err)
	}

	for _, l := range net.Layers() {
		rawW, ok := state[l.Name+".weight"]
		if !ok {
			return &MissingError{Layer: l.Name, Tensor: "weight"}
		}
		rawB, ok := state[l.Name+".bias"]
		if !ok {
			return &MissingError{Layer: l.Name, Tensor: "bias"}
		}

		var weight [][]float64
		if err := json.Unmarshal(rawW, &weight); err != nil {
			return fmt.Errorf("layer %s weight: %w", l.Name, err)
		}
		var bias []float64
		if err := json.Unmarshal(rawB, &bias); err != nil {
			return fmt.Errorf("layer %s bias: %w", l.Name, err)
		}

		kernel, shape, err := transpose(l, weight)
		if err != nil {
			return err
		}
		if err := net.SetWeights(l.Name, kernel, shape, bias); err != nil {
			return err
		}
	}
	return nil
}

// transpose turns an Out×In weight matrix into a row-major In×Out kernel.
func transpose(l nn.LayerSpec, weight [][]float64) ([]float64, []int, error) {
	out := len(weight)
	in := 0
	if out > 0 {
		in = len(weight[0])
	}
	for _, row := range weight {
		if len(row) != in {
			return nil, nil, &nn.ShapeError{Layer: l.Name, Tensor: "weight", Got: []int{out, len(row)}, Want: []int{l.Out, l.In}}
		}
	}

	kernel := make([]float64, in*out)
	for o, row := range weight {
		for i, v := range row {
			kernel[i*out+o] = v
		}
	}
	return kernel, []int{in, out}, nil
}

func saveJSON(path string, net *nn.Network) error {
	state := make(map[string]interface{})
	for _, spec := range net.Layers() {
		l := net.Layer(spec.Name)
		weight := make([][]float64, spec.Out)
		for o := range weight {
			weight[o] = make([]float64, spec.In)
			for i := range weight[o] {
				weight[o][i] = l.Kernel.At(i, o)
			}
		}
		state[spec.Name+".weight"] = weight
		state[spec.Name+".bias"] = l.Bias
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(state); err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	return nil
}
