package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gocv.io/x/gocv"
)

// DefaultExtensions are the frame file extensions picked up when none are configured.
var DefaultExtensions = []string{".jpg", ".png"}

var (
	// ErrDecode is returned when an image file cannot be decoded.
	ErrDecode = errors.New("frame decode failed")

	// ErrDimensionMismatch is returned when frames do not share one size.
	ErrDimensionMismatch = errors.New("frame dimensions differ")
)

// DecodeError names the file that failed to decode.
type DecodeError struct {
	Path string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDecode, e.Path)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// DimensionError describes a frame whose size differs from the first frame.
type DimensionError struct {
	Name                  string
	Width, Height         int
	WantWidth, WantHeight int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %s is %dx%d, want %dx%d",
		ErrDimensionMismatch, e.Name, e.Width, e.Height, e.WantWidth, e.WantHeight)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// Frame is a decoded single-channel 8-bit image.
type Frame struct {
	Name string
	Path string
	Mat  gocv.Mat
}

// Width returns the frame width in pixels.
func (f Frame) Width() int { return f.Mat.Cols() }

// Height returns the frame height in pixels.
func (f Frame) Height() int { return f.Mat.Rows() }

// Close releases the underlying image buffer.
func (f Frame) Close() error { return f.Mat.Close() }

// Frames is an ordered frame sequence.
type Frames []Frame

// Close releases every frame.
func (fs Frames) Close() {
	for _, f := range fs {
		f.Close()
	}
}

// Names returns the file names in order.
func (fs Frames) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// LoadOptions control which files LoadFrames picks up and how they are ordered.
type LoadOptions struct {
	Extensions  []string
	SortNumeric bool
}

// LoadFrames decodes every matching image directly inside dir as grayscale.
//
// Files are taken in directory listing order unless SortNumeric is set, in
// which case names are ordered by their trailing frame number. Subdirectories
// are not visited. An empty directory yields no frames and no error.
func LoadFrames(ctx context.Context, dir string, opts LoadOptions) (Frames, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory '%s': %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && hasExtension(e.Name(), exts) {
			names = append(names, e.Name())
		}
	}
	if opts.SortNumeric {
		SortNumeric(names)
	}

	frames := make(Frames, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			frames.Close()
			return nil, err
		}

		path := filepath.Join(dir, name)
		mat := gocv.IMRead(path, gocv.IMReadGrayScale)
		if mat.Empty() {
			mat.Close()
			frames.Close()
			return nil, &DecodeError{Path: path}
		}

		frame := Frame{Name: name, Path: path, Mat: mat}
		if len(frames) > 0 {
			if err := SameSize(frames[0], frame); err != nil {
				frame.Close()
				frames.Close()
				return nil, err
			}
		}
		frames = append(frames, frame)
	}

	return frames, nil
}

// SameSize returns a *DimensionError when other differs in size from ref.
func SameSize(ref, other Frame) error {
	if ref.Width() == other.Width() && ref.Height() == other.Height() {
		return nil
	}
	return &DimensionError{
		Name:       other.Name,
		Width:      other.Width(),
		Height:     other.Height(),
		WantWidth:  ref.Width(),
		WantHeight: ref.Height(),
	}
}

// SortNumeric orders file names by their trailing integer, falling back to
// lexical order for ties and for names without digits.
func SortNumeric(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ni, oki := trailingNumber(names[i])
		nj, okj := trailingNumber(names[j])
		if oki && okj && ni != nj {
			return ni < nj
		}
		if oki != okj {
			return oki
		}
		return names[i] < names[j]
	})
}

func trailingNumber(name string) (int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	end := len(base)
	start := end
	for start > 0 && unicode.IsDigit(rune(base[start-1])) {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(base[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
