package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sawpanic/streakrun/internal/backtest"
	aio "github.com/sawpanic/streakrun/internal/io"
)

// WriteArtifact stores the JSON form of run atomically.
func WriteArtifact(path string, run *backtest.Run) error {
	if err := aio.WriteJSONAtomic(path, run); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return nil
}

// LoadArtifact reads a run written by WriteArtifact. Grid data is not part
// of the artifact and stays nil.
func LoadArtifact(path string) (*backtest.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	var run backtest.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return &run, nil
}
