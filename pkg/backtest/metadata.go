package backtest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"
)

// RunMetadata records the provenance of one backtest run so later
// comparisons can tell whether two runs saw the same inputs.
type RunMetadata struct {
	RunAt       time.Time `json:"run_at"`
	VCSRevision string    `json:"vcs_revision,omitempty"`
	DataPath    string    `json:"data_path"`
	DataSHA256  string    `json:"data_sha256"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// BuildRunMetadata captures provenance for a run over the given data file.
func BuildRunMetadata(dataPath string, p RunParams) (RunMetadata, error) {
	sum, err := FileSHA256(dataPath)
	if err != nil {
		return RunMetadata{}, err
	}

	meta := RunMetadata{
		RunAt:      time.Now().UTC(),
		DataPath:   dataPath,
		DataSHA256: sum,
		Start:      p.Start,
		End:        p.End,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				meta.VCSRevision = s.Value
				break
			}
		}
	}
	return meta, nil
}

// FileSHA256 returns the hex SHA-256 of a file's contents.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
