package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExtractFrames writes frames of videoPath at fps frames per second into
// outputDir/<video name> and returns that directory. Extraction is skipped
// when the directory already holds frames.
func ExtractFrames(ctx context.Context, logger *slog.Logger, videoPath, outputDir string, fps int) (string, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return "", fmt.Errorf("video file does not exist at path: '%s'", videoPath)
	}
	if fps <= 0 {
		return "", fmt.Errorf("invalid frame rate %d", fps)
	}

	videoName := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	frameDirPath := filepath.Join(outputDir, videoName)

	if count := countFrames(frameDirPath, DefaultExtensions); count > 0 {
		logger.Info("frames already extracted, skipping ffmpeg", "dir", frameDirPath, "frames", count)
		return frameDirPath, nil
	}

	if err := os.MkdirAll(frameDirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create frame directory '%s': %w", frameDirPath, err)
	}

	logger.Info("extracting frames", "video", videoPath, "dir", frameDirPath, "fps", fps)

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", fps),
		"-y",
		filepath.Join(frameDirPath, "frame_%04d.png"),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}

	logger.Info("frames extracted", "dir", frameDirPath, "frames", countFrames(frameDirPath, DefaultExtensions))
	return frameDirPath, nil
}

func countFrames(dir string, exts []string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && hasExtension(e.Name(), exts) {
			n++
		}
	}
	return n
}
