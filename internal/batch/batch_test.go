package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/flowvision/internal/flow"
)

func features(dim int, names ...string) []flow.Feature {
	var fs []flow.Feature
	for i := 0; i+1 < len(names); i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(i*10 + j)
		}
		fs = append(fs, flow.Feature{From: names[i], To: names[i+1], Values: v})
	}
	return fs
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("pair")
	require.NoError(t, err)
	assert.Equal(t, PerPair, l)

	l, err = ParseLayout("WINDOW")
	require.NoError(t, err)
	assert.Equal(t, Window, l)
	assert.Equal(t, "window", l.String())

	_, err = ParseLayout("cube")
	assert.Error(t, err)
}

func TestBuildPerPair(t *testing.T) {
	b, err := Build(features(4, "a", "b", "c", "d"), PerPair, 7)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Rows())
	assert.Equal(t, 4, b.Cols())
	assert.Equal(t, []float64{10, 11, 12, 13}, b.Matrix.RawRowView(1))
	assert.Equal(t, []Span{{"a", "b"}, {"b", "c"}, {"c", "d"}}, b.Spans)
	assert.Zero(t, b.Dropped)
}

func TestBuildWindowDropsRemainder(t *testing.T) {
	b, err := Build(features(2, "a", "b", "c", "d", "e", "f"), Window, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, b.Rows())
	assert.Equal(t, 4, b.Cols())
	assert.Equal(t, []float64{0, 1, 10, 11}, b.Matrix.RawRowView(0))
	assert.Equal(t, []Span{{"a", "c"}, {"c", "e"}}, b.Spans)
	assert.Equal(t, 1, b.Dropped)
}

func TestBuildWindowTooShort(t *testing.T) {
	b, err := Build(features(2, "a", "b"), Window, 3)
	require.NoError(t, err)
	assert.Zero(t, b.Rows())
	assert.Equal(t, 1, b.Dropped)
}

func TestBuildEmpty(t *testing.T) {
	b, err := Build(nil, PerPair, 1)
	require.NoError(t, err)
	assert.Zero(t, b.Rows())
	assert.Zero(t, b.Cols())
	assert.Nil(t, b.Matrix)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(features(2, "a", "b"), Window, 0)
	assert.ErrorIs(t, err, ErrWindow)

	ragged := features(2, "a", "b", "c")
	ragged[1].Values = ragged[1].Values[:1]
	_, err = Build(ragged, PerPair, 1)
	assert.ErrorIs(t, err, ErrRagged)
}

func TestStack(t *testing.T) {
	a, err := Build(features(3, "a1", "a2", "a3"), PerPair, 1)
	require.NoError(t, err)
	b, err := Build(features(3, "b1", "b2"), PerPair, 1)
	require.NoError(t, err)
	empty, err := Build(nil, PerPair, 1)
	require.NoError(t, err)

	s, err := Stack(a, empty, b)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Rows())
	assert.Equal(t, Span{"b1", "b2"}, s.Spans[2])
	assert.Equal(t, []float64{0, 1, 2}, s.Matrix.RawRowView(2))

	c, err := Build(features(5, "c1", "c2"), PerPair, 1)
	require.NoError(t, err)
	_, err = Stack(a, c)
	assert.ErrorIs(t, err, ErrRagged)

	none, err := Stack(empty)
	require.NoError(t, err)
	assert.Zero(t, none.Rows())
}
