// inference/store.go
package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists classified results into mode-segregated roots. Real and
// simulated results must never land under the other mode's root: audit and
// notification consumers key their trust level off the directory, not a
// field inside the file.
type Store struct {
	realDir string
	simDir  string
}

// NewStore returns a result store over the two disjoint output roots.
func NewStore(realDir, simDir string) (*Store, error) {
	realAbs, err := filepath.Abs(realDir)
	if err != nil {
		return nil, fmt.Errorf("real output root: %w", err)
	}
	simAbs, err := filepath.Abs(simDir)
	if err != nil {
		return nil, fmt.Errorf("sim output root: %w", err)
	}
	if containsPath(realAbs, simAbs) || containsPath(simAbs, realAbs) {
		return nil, fmt.Errorf("output roots must be disjoint: %s and %s", realAbs, simAbs)
	}
	return &Store{realDir: realAbs, simDir: simAbs}, nil
}

// containsPath reports whether child is dir itself or lives under it. A
// nested root would let one mode's results land inside the other mode's
// tree, so equality alone is not enough.
func containsPath(dir, child string) bool {
	rel, err := filepath.Rel(dir, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Root returns the output root for a mode.
func (s *Store) Root(mode Mode) string {
	if mode == ModeSimulated {
		return s.simDir
	}
	return s.realDir
}

// Persist writes one pass's artifacts: result.json (the structured result)
// and transcript.txt (raw engine output or fallback narrative), under a
// directory keyed by the mode-tagged request ID and generation timestamp.
// On failure the returned error is a *PersistenceError carrying the result,
// so callers can still report it.
func (s *Store) Persist(res *Result, transcript string) (string, error) {
	dir := filepath.Join(s.Root(res.SourceMode), dirName(res))

	if err := s.write(res, dir, transcript); err != nil {
		return "", &PersistenceError{Result: res, Err: err}
	}

	res.Location = dir
	return dir, nil
}

func (s *Store) write(res *Result, dir, transcript string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "result.json"), data, 0644); err != nil {
		return fmt.Errorf("write result.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "transcript.txt"), []byte(transcript), 0644); err != nil {
		return fmt.Errorf("write transcript.txt: %w", err)
	}
	return nil
}

func dirName(res *Result) string {
	return fmt.Sprintf("%s_%s", res.RequestID, res.GeneratedAt.UTC().Format("20060102_150405"))
}
