package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bdougie/flowvision/internal/config"
	"github.com/bdougie/flowvision/internal/models"
)

// ResultsFile is the file name predictions are written to under the run directory.
const ResultsFile = "predictions.json"

// Storage defines the interface for storing predictions
type Storage interface {
	// AddResult adds a single prediction
	AddResult(ctx context.Context, result models.Prediction) error

	// Flush ensures all pending results are saved
	Flush(ctx context.Context) error

	// Close releases any held resources
	Close()
}

// Discard drops every result.
type Discard struct{}

func (Discard) AddResult(context.Context, models.Prediction) error { return nil }

func (Discard) Flush(context.Context) error { return nil }

func (Discard) Close() {}

// FileStorage batches predictions into a JSON array on disk
type FileStorage struct {
	results   []models.Prediction
	mu        sync.Mutex
	outputDir string
	runName   string
	batchSize int
}

// NewFileStorage creates a file storage writing to outputDir/runName/predictions.json
func NewFileStorage(outputDir, runName string) *FileStorage {
	return &FileStorage{
		outputDir: outputDir,
		runName:   runName,
		batchSize: config.ResultsBatchSize,
	}
}

// Path returns the results file location
func (s *FileStorage) Path() string {
	return filepath.Join(s.outputDir, s.runName, ResultsFile)
}

// AddResult adds a result to the batch and flushes if the batch is full
func (s *FileStorage) AddResult(ctx context.Context, result models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)

	if len(s.results) >= s.batchSize {
		return s.flush()
	}
	return nil
}

// Flush writes all pending results to disk
func (s *FileStorage) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// Close is a no-op; pending results need an explicit Flush
func (s *FileStorage) Close() {}

func (s *FileStorage) flush() error {
	if len(s.results) == 0 {
		return nil
	}

	resultsFilePath := s.Path()

	existing, err := ReadResults(resultsFilePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	all := append(existing, s.results...)

	if err := os.MkdirAll(filepath.Dir(resultsFilePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for results: %w", err)
	}

	file, err := os.Create(resultsFilePath)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(all); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	s.results = nil
	return nil
}

// ReadResults loads a predictions file written by FileStorage
func ReadResults(path string) ([]models.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []models.Prediction
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal existing results: %w", err)
	}
	return results, nil
}
