package extractor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/flowvision/internal/frametest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractFramesMissingVideo(t *testing.T) {
	_, err := ExtractFrames(context.Background(), discardLogger(), filepath.Join(t.TempDir(), "none.mp4"), t.TempDir(), 5)
	assert.Error(t, err)
}

func TestExtractFramesSkipsExisting(t *testing.T) {
	out := t.TempDir()
	video := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("stub"), 0644))

	frameDir := filepath.Join(out, "clip")
	require.NoError(t, os.MkdirAll(frameDir, 0755))
	frametest.Write(t, frameDir, "frame_0001.png", 8, 8, 0)

	dir, err := ExtractFrames(context.Background(), discardLogger(), video, out, 5)
	require.NoError(t, err)
	assert.Equal(t, frameDir, dir)
}

func TestExtractFramesRejectsFPS(t *testing.T) {
	video := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("stub"), 0644))

	_, err := ExtractFrames(context.Background(), discardLogger(), video, t.TempDir(), 0)
	assert.Error(t, err)
}
