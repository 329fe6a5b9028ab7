package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputRoundTrip(t *testing.T) {
	in := []float64{4.9, 2.4, 3.3, 1.0}
	got, err := parseInput(formatInput(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestParseInput(t *testing.T) {
	got, err := parseInput(" 1, 2.5 ,,3")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 3}, got)

	_, err = parseInput("1,x")
	assert.Error(t, err)
}
