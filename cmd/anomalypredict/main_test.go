package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/flowvision/internal/config"
	"github.com/bdougie/flowvision/internal/storage"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{".jpg", ".png"}, splitList(" .jpg, ,.png"))
	assert.Nil(t, splitList(""))
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	s, err := openStorage(ctx, &config.Anomaly{}, "run")
	require.NoError(t, err)
	assert.IsType(t, storage.Discard{}, s)

	dir := t.TempDir()
	s, err = openStorage(ctx, &config.Anomaly{OutputDir: dir}, "run")
	require.NoError(t, err)
	require.IsType(t, &storage.FileStorage{}, s)
	assert.Contains(t, s.(*storage.FileStorage).Path(), dir)
}
