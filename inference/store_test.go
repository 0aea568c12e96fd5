package inference

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult(mode Mode) *Result {
	req := NewRequest(mode, TriggerManual)
	raw := engineOutput(0.95).Output
	return Classify(&raw, req, ByEngine, time.Date(2024, 9, 1, 10, 30, 0, 0, time.UTC))
}

func TestStoreRejectsSharedRoots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewStore(dir, dir)
	assert.Error(t, err)
}

// A root nested inside the other would let one mode's results land under
// the other mode's tree, so it is as invalid as a shared root.
func TestStoreRejectsNestedRoots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := NewStore(dir, filepath.Join(dir, "sim"))
	assert.Error(t, err, "sim root inside real root")

	_, err = NewStore(filepath.Join(dir, "sim", "real"), filepath.Join(dir, "sim"))
	assert.Error(t, err, "real root inside sim root")

	_, err = NewStore(filepath.Join(dir, "real"), filepath.Join(dir, "realistic"))
	assert.NoError(t, err, "sibling roots sharing a name prefix are disjoint")
}

func TestStoreModeSegregation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	realRoot := filepath.Join(dir, "real")
	simRoot := filepath.Join(dir, "sim")

	s, err := NewStore(realRoot, simRoot)
	require.NoError(t, err)

	realLoc, err := s.Persist(testResult(ModeReal), "real transcript")
	require.NoError(t, err)
	simLoc, err := s.Persist(testResult(ModeSimulated), "sim transcript")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(realLoc, realRoot), "real result outside real root: %s", realLoc)
	assert.True(t, strings.HasPrefix(simLoc, simRoot), "sim result outside sim root: %s", simLoc)

	// Nothing of one mode leaks under the other root.
	entries, err := os.ReadDir(simRoot)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), "sim-"), "stray %s under sim root", e.Name())
	}
	entries, err = os.ReadDir(realRoot)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), "real-"), "stray %s under real root", e.Name())
	}
}

func TestStoreArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "real"), filepath.Join(dir, "sim"))
	require.NoError(t, err)

	res := testResult(ModeReal)
	loc, err := s.Persist(res, "the full engine transcript")
	require.NoError(t, err)
	assert.Equal(t, loc, res.Location)

	// Directory name embeds the request ID and generation timestamp.
	base := filepath.Base(loc)
	assert.True(t, strings.HasPrefix(base, res.RequestID+"_"))
	assert.True(t, strings.HasSuffix(base, "20240901_103000"))

	transcript, err := os.ReadFile(filepath.Join(loc, "transcript.txt"))
	require.NoError(t, err)
	assert.Equal(t, "the full engine transcript", string(transcript))

	data, err := os.ReadFile(filepath.Join(loc, "result.json"))
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, res.RequestID, decoded.RequestID)
	assert.Equal(t, res.Confidence, decoded.Confidence)
	assert.Equal(t, res.GeneratedBy, decoded.GeneratedBy)
}

func TestStorePersistFailureCarriesResult(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	realRoot := filepath.Join(dir, "real")
	s, err := NewStore(realRoot, filepath.Join(dir, "sim"))
	require.NoError(t, err)

	// Make the real root an unwritable file so MkdirAll fails.
	require.NoError(t, os.WriteFile(realRoot, []byte("in the way"), 0644))

	res := testResult(ModeReal)
	_, err = s.Persist(res, "transcript")
	require.Error(t, err)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Same(t, res, perr.Result)
	assert.Empty(t, res.Location)
}
