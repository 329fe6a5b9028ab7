package weights

import (
	"fmt"

	"gonum.org/v1/hdf5"

	"github.com/bdougie/flowvision/internal/nn"
)

// kerasPaths lists where a layer's tensor may live, in lookup order: a full
// saved model, a weights-only file, then a flat group per layer.
func kerasPaths(layer, tensor string) []string {
	return []string{
		fmt.Sprintf("model_weights/%s/%s/%s:0", layer, layer, tensor),
		fmt.Sprintf("%s/%s/%s:0", layer, layer, tensor),
		fmt.Sprintf("%s/%s", layer, tensor),
	}
}

func loadHDF5(path string, net *nn.Network) error {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, l := range net.Layers() {
		kernel, kshape, err := findTensor(f, l.Name, "kernel")
		if err != nil {
			return err
		}
		bias, bshape, err := findTensor(f, l.Name, "bias")
		if err != nil {
			return err
		}
		if len(bshape) != 1 {
			return &nn.ShapeError{Layer: l.Name, Tensor: "bias", Got: bshape, Want: []int{l.Out}}
		}
		if err := net.SetWeights(l.Name, kernel, kshape, bias); err != nil {
			return err
		}
	}
	return nil
}

func findTensor(f *hdf5.File, layer, tensor string) ([]float64, []int, error) {
	for _, p := range kerasPaths(layer, tensor) {
		ds, err := f.OpenDataset(p)
		if err != nil {
			continue
		}
		data, shape, err := readDataset(ds)
		ds.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", p, err)
		}
		return data, shape, nil
	}
	return nil, nil, &MissingError{Layer: layer, Tensor: tensor}
}

// readDataset reads a float dataset into float64 regardless of its stored width.
func readDataset(ds *hdf5.Dataset) ([]float64, []int, error) {
	space := ds.Space()
	defer space.Close()

	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, nil, err
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}
	n := space.SimpleExtentNPoints()

	dtype, err := ds.Datatype()
	if err != nil {
		return nil, nil, err
	}
	defer dtype.Close()
	if dtype.Class() != hdf5.T_FLOAT {
		return nil, nil, fmt.Errorf("dataset is not floating point")
	}

	// Dataset.Read uses the stored type as the memory type, so the buffer
	// must match its width.
	switch dtype.Size() {
	case 4:
		buf := make([]float32, n)
		if err := ds.Read(&buf); err != nil {
			return nil, nil, err
		}
		out := make([]float64, n)
		for i, v := range buf {
			out[i] = float64(v)
		}
		return out, shape, nil
	case 8:
		buf := make([]float64, n)
		if err := ds.Read(&buf); err != nil {
			return nil, nil, err
		}
		return buf, shape, nil
	default:
		return nil, nil, fmt.Errorf("unsupported float width %d", dtype.Size())
	}
}

func saveHDF5(path string, net *nn.Network) error {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	defer f.Close()

	for _, spec := range net.Layers() {
		l := net.Layer(spec.Name)

		outer, err := f.CreateGroup(spec.Name)
		if err != nil {
			return err
		}
		inner, err := outer.CreateGroup(spec.Name)
		if err != nil {
			outer.Close()
			return err
		}

		kernel := make([]float32, 0, spec.In*spec.Out)
		for i := 0; i < spec.In; i++ {
			for o := 0; o < spec.Out; o++ {
				kernel = append(kernel, float32(l.Kernel.At(i, o)))
			}
		}
		bias := make([]float32, len(l.Bias))
		for i, v := range l.Bias {
			bias[i] = float32(v)
		}

		err = writeDataset(inner, "kernel:0", []uint{uint(spec.In), uint(spec.Out)}, kernel)
		if err == nil {
			err = writeDataset(inner, "bias:0", []uint{uint(spec.Out)}, bias)
		}
		inner.Close()
		outer.Close()
		if err != nil {
			return fmt.Errorf("layer %s: %w", spec.Name, err)
		}
	}
	return nil
}

func writeDataset(g *hdf5.Group, name string, dims []uint, data []float32) error {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer space.Close()

	ds, err := g.CreateDataset(name, hdf5.T_NATIVE_FLOAT, space)
	if err != nil {
		return err
	}
	defer ds.Close()

	return ds.Write(&data)
}
