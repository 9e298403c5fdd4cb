package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SavePrediction merges p into the JSON prediction log at path, keyed by
// target Sunday. Existing entries for other weeks are preserved; a rerun for
// the same target overwrites that week's entry.
func SavePrediction(path string, p Prediction) error {
	log := make(map[string]Prediction)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &log); err != nil {
			return fmt.Errorf("parse prediction log %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// first prediction, start a fresh log
	default:
		return fmt.Errorf("read prediction log: %w", err)
	}

	log[p.TargetDate.Format("2006-01-02")] = p

	out, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prediction log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create prediction log dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write prediction log: %w", err)
	}
	return nil
}
