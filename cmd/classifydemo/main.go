package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bdougie/flowvision/internal/classify"
	"github.com/bdougie/flowvision/internal/config"
	"github.com/bdougie/flowvision/internal/logger"
)

func main() {
	cfg, err := config.LoadClassifier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	input := formatInput(cfg.Input)
	zero := flag.Bool("zero", false, "use all-zero weights instead of -weights")
	flag.StringVar(&cfg.WeightsPath, "weights", cfg.WeightsPath, "classifier weights (.json or .h5)")
	flag.StringVar(&input, "input", input, "comma separated input features")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.Parse()

	log := logger.New(cfg.LogLevel)

	values, err := parseInput(input)
	if err != nil {
		log.Error("invalid input", "err", err)
		os.Exit(2)
	}

	log.Debug("running classifier", "weights", cfg.WeightsPath, "zero", *zero, "input", values)
	if _, err := classify.Run(classify.Options{WeightsPath: cfg.WeightsPath, Zero: *zero, Input: values}, os.Stdout); err != nil {
		log.Error("classifier failed", "err", err)
		os.Exit(1)
	}
}

func formatInput(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func parseInput(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", part, err)
		}
		out = append(out, f)
	}
	return out, nil
}
