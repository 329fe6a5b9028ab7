// Package batch shapes flow features into model input matrices.
package batch

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/bdougie/flowvision/internal/flow"
)

var (
	// ErrRagged is returned when features differ in length.
	ErrRagged = errors.New("feature vectors differ in length")

	// ErrWindow is returned for a window smaller than one pair.
	ErrWindow = errors.New("window must be at least 1")
)

// Layout selects how frame pairs map onto batch rows.
type Layout int

const (
	// PerPair makes every frame pair its own row.
	PerPair Layout = iota
	// Window concatenates consecutive pairs into one row.
	Window
)

func (l Layout) String() string {
	switch l {
	case PerPair:
		return "pair"
	case Window:
		return "window"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout accepts "pair" or "window".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pair":
		return PerPair, nil
	case "window":
		return Window, nil
	default:
		return 0, fmt.Errorf("unknown batch layout %q", s)
	}
}

// Span names the first and last frame covered by a row.
type Span struct {
	First string
	Last  string
}

// Batch is the model input. Matrix is nil when there are no rows.
type Batch struct {
	Matrix  *mat.Dense
	Spans   []Span
	Dropped int
}

// Rows returns the number of samples in the batch.
func (b *Batch) Rows() int {
	if b.Matrix == nil {
		return 0
	}
	r, _ := b.Matrix.Dims()
	return r
}

// Cols returns the row width, zero for an empty batch.
func (b *Batch) Cols() int {
	if b.Matrix == nil {
		return 0
	}
	_, c := b.Matrix.Dims()
	return c
}

// Build lays features out as rows. With PerPair the result is
// (pairs × feature length); with Window each row joins window consecutive
// pairs and pairs left over at the end are dropped and counted.
func Build(features []flow.Feature, layout Layout, window int) (*Batch, error) {
	if layout == PerPair {
		window = 1
	}
	if window < 1 {
		return nil, ErrWindow
	}
	if len(features) == 0 {
		return &Batch{}, nil
	}

	dim := len(features[0].Values)
	for i, f := range features {
		if len(f.Values) != dim {
			return nil, fmt.Errorf("%w: feature %d has %d values, want %d", ErrRagged, i, len(f.Values), dim)
		}
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty feature vectors", ErrRagged)
	}

	rows := len(features) / window
	b := &Batch{Dropped: len(features) - rows*window}
	if rows == 0 {
		return b, nil
	}

	data := make([]float64, 0, rows*window*dim)
	for r := 0; r < rows; r++ {
		group := features[r*window : (r+1)*window]
		for _, f := range group {
			for _, v := range f.Values {
				data = append(data, float64(v))
			}
		}
		b.Spans = append(b.Spans, Span{First: group[0].From, Last: group[len(group)-1].To})
	}
	b.Matrix = mat.NewDense(rows, window*dim, data)
	return b, nil
}

// Stack joins batches from several videos row-wise. Empty batches are skipped.
func Stack(batches ...*Batch) (*Batch, error) {
	out := &Batch{}
	cols := 0
	for _, b := range batches {
		out.Dropped += b.Dropped
		if b.Rows() == 0 {
			continue
		}
		if cols == 0 {
			cols = b.Cols()
		} else if b.Cols() != cols {
			return nil, fmt.Errorf("%w: batch width %d, want %d", ErrRagged, b.Cols(), cols)
		}
		out.Spans = append(out.Spans, b.Spans...)
	}
	if len(out.Spans) == 0 {
		return out, nil
	}

	data := make([]float64, 0, len(out.Spans)*cols)
	for _, b := range batches {
		if b.Rows() == 0 {
			continue
		}
		for r := 0; r < b.Rows(); r++ {
			data = append(data, b.Matrix.RawRowView(r)...)
		}
	}
	out.Matrix = mat.NewDense(len(out.Spans), cols, data)
	return out, nil
}
