// Package weights loads and saves dense network parameters.
//
// Two layouts are understood. HDF5 files follow the Keras convention of one
// group per layer holding "kernel:0" (In×Out) and "bias:0" datasets. JSON files
// are state dicts keyed "<layer>.weight" (Out×In) and "<layer>.bias".
package weights

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bdougie/flowvision/internal/nn"
)

// ErrFormat is returned for file extensions no loader understands.
var ErrFormat = errors.New("unsupported weights format")

// MissingError reports a tensor absent from the weights file.
type MissingError struct {
	Layer  string
	Tensor string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("weights: no %s tensor for layer %q", e.Tensor, e.Layer)
}

// Load reads the parameters at path into net, choosing the format by extension.
// Every layer of net must be present with exactly its declared shape.
func Load(path string, net *nn.Network) error {
	var err error
	switch ext(path) {
	case ".h5", ".hdf5":
		err = loadHDF5(path, net)
	case ".json":
		err = loadJSON(path, net)
	default:
		return fmt.Errorf("%w: %q", ErrFormat, filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("load weights from %s: %w", path, err)
	}
	return nil
}

// Save writes the parameters of net to path, choosing the format by extension.
func Save(path string, net *nn.Network) error {
	switch ext(path) {
	case ".h5", ".hdf5":
		return saveHDF5(path, net)
	case ".json":
		return saveJSON(path, net)
	default:
		return fmt.Errorf("%w: %q", ErrFormat, filepath.Base(path))
	}
}

// Zero resets every layer of net to zero parameters.
func Zero(net *nn.Network) error {
	for _, l := range net.Layers() {
		if err := net.SetWeights(l.Name, make([]float64, l.In*l.Out), []int{l.In, l.Out}, make([]float64, l.Out)); err != nil {
			return err
		}
	}
	return nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
