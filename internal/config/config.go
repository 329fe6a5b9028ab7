package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ResultsBatchSize is the number of predictions buffered before the file sink writes to disk.
const ResultsBatchSize = 10

// Anomaly configures the frame-flow anomaly prediction tool.
type Anomaly struct {
	FramesDir       string   `env:"FRAMES_DIR"`
	VideoPath       string   `env:"VIDEO_PATH"`
	FFmpegFPS       int      `env:"FFMPEG_FPS"       envDefault:"10"`
	ModelPath       string   `env:"MODEL_PATH"       envDefault:"model.h5"`
	ModelLayers     string   `env:"MODEL_LAYERS"     envDefault:"dense:128:relu,dense_1:1:sigmoid"`
	BatchLayout     string   `env:"BATCH_LAYOUT"     envDefault:"pair"`
	BatchWindow     int      `env:"BATCH_WINDOW"     envDefault:"1"`
	FrameExtensions []string `env:"FRAME_EXTENSIONS" envDefault:".jpg,.png" envSeparator:","`
	SortNumeric     bool     `env:"SORT_NUMERIC"     envDefault:"false"`
	OutputDir       string   `env:"OUTPUT_DIR"`
	DatabaseURL     string   `env:"DATABASE_URL"`
	Progress        bool     `env:"PROGRESS"         envDefault:"true"`
	LogLevel        string   `env:"LOG_LEVEL"        envDefault:"info"`
}

// Validate reports settings that cannot produce a run.
func (c *Anomaly) Validate() error {
	if c.FramesDir == "" && c.VideoPath == "" {
		return fmt.Errorf("either a frames directory or a video path is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.VideoPath != "" && c.FFmpegFPS <= 0 {
		return fmt.Errorf("ffmpeg fps must be positive, got %d", c.FFmpegFPS)
	}
	switch strings.ToLower(c.BatchLayout) {
	case "pair", "window":
	default:
		return fmt.Errorf("unknown batch layout %q", c.BatchLayout)
	}
	if c.BatchWindow < 1 {
		return fmt.Errorf("batch window must be at least 1, got %d", c.BatchWindow)
	}
	return nil
}

// Classifier configures the classifier smoke-test tool.
type Classifier struct {
	WeightsPath string    `env:"CLASSIFIER_WEIGHTS" envDefault:"classifier.json"`
	Input       []float64 `env:"CLASSIFIER_INPUT"   envDefault:"4.9,2.4,3.3,1.0" envSeparator:","`
	LogLevel    string    `env:"LOG_LEVEL"          envDefault:"info"`
}

// LoadAnomaly reads the anomaly tool settings from the process environment.
func LoadAnomaly() (*Anomaly, error) {
	cfg := &Anomaly{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClassifier reads the classifier tool settings from the process environment.
func LoadClassifier() (*Classifier, error) {
	cfg := &Classifier{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseFrom is used by tests to load from an explicit environment.
func parseFrom(cfg interface{}, environ map[string]string) error {
	return env.ParseWithOptions(cfg, env.Options{Environment: environ})
}
