package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/songvec/vector"
)

// writeTone writes a 16-bit mono WAV of a tone whose amplitude rises over
// time, so every chunk of the track embeds differently.
func writeTone(t *testing.T, path string, freq float64, rate, seconds int) {
	t.Helper()
	n := rate * seconds
	var pcm bytes.Buffer
	for i := 0; i < n; i++ {
		amp := 0.05 + 0.9*float64(i)/float64(n)
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
		_ = binary.Write(&pcm, binary.LittleEndian, int16(v*math.MaxInt16))
	}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+pcm.Len()))
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{uint32(16), uint16(1), uint16(1), uint32(rate), uint32(rate * 2), uint16(2), uint16(16)} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(pcm.Len()))
	buf.Write(pcm.Bytes())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func setup(t *testing.T) (configPath, audioDir string) {
	t.Helper()
	dir := t.TempDir()
	audioDir = filepath.Join(dir, "audio")
	require.NoError(t, os.Mkdir(audioDir, 0o755))
	writeTone(t, filepath.Join(audioDir, "000002.wav"), 440, 16000, 27)
	writeTone(t, filepath.Join(audioDir, "000005.wav"), 1200, 16000, 27)
	writeTone(t, filepath.Join(audioDir, "000009.wav"), 300, 16000, 4)

	csvPath := filepath.Join(dir, "tracks.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("track_id,genre\n2,Rock\n5,Jazz\n9,Rock\n"), 0o644))

	configPath = filepath.Join(dir, "songvec.yaml")
	cfg := fmt.Sprintf(`
store:
  dsn: %s
  dimension: 16
catalog:
  audio_dir: %s
  metadata_csv: %s
  header_rows: 1
  id_column: 0
  genre_column: 1
  extensions: [".wav"]
ledger:
  dir: %s
log:
  level: warn
`, filepath.Join(dir, "songs.sqlite"), audioDir, csvPath, filepath.Join(dir, "ledger"))
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))
	return configPath, audioDir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_EndToEnd(t *testing.T) {
	configPath, audioDir := setup(t)

	_, err := runCmd(t, "-config", configPath, "schema", "create")
	require.NoError(t, err)
	_, err = runCmd(t, "-config", configPath, "schema", "create")
	var schemaErr *vector.SchemaError
	require.ErrorAs(t, err, &schemaErr)

	out, err := runCmd(t, "-config", configPath, "ingest", "-progress=false")
	require.NoError(t, err)
	assert.Contains(t, out, "completed=2")
	assert.Contains(t, out, "short=1")
	assert.Contains(t, out, "inserted=18")

	// The ledger turns a rerun into a no-op.
	out, err = runCmd(t, "-config", configPath, "ingest", "-progress=false")
	require.NoError(t, err)
	assert.Contains(t, out, "already_ingested=2")
	assert.Contains(t, out, "inserted=0")

	out, err = runCmd(t, "-config", configPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "rows\t18\n")
	assert.Contains(t, out, "Jazz\t1\n")
	assert.Contains(t, out, "Rock\t1\n")

	out, err = runCmd(t, "-config", configPath, "query", "-k", "20", filepath.Join(audioDir, "000002.wav"))
	require.NoError(t, err)
	assert.Contains(t, out, "5\tJazz\t")
	assert.NotContains(t, out, "2\tRock\t")

	out, err = runCmd(t, "-config", configPath, "exists", filepath.Join(audioDir, "000002.wav"))
	require.NoError(t, err)
	assert.Contains(t, out, "chunk 0: near-duplicate of 2_c0 (Rock) at 0.000000")

	out, err = runCmd(t, "-config", configPath, "schema", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "exists: true")
	_, err = runCmd(t, "-config", configPath, "schema", "drop")
	require.NoError(t, err)
	_, err = runCmd(t, "-config", configPath, "schema", "drop")
	require.ErrorAs(t, err, &schemaErr)
}

func TestRun_Usage(t *testing.T) {
	configPath, _ := setup(t)
	_, err := runCmd(t)
	require.ErrorIs(t, err, errUsage)
	_, err = runCmd(t, "-config", configPath, "reindex")
	require.ErrorIs(t, err, errUsage)
	_, err = runCmd(t, "-config", configPath, "query")
	require.ErrorIs(t, err, errUsage)
	_, err = runCmd(t, "-config", configPath, "schema", "rebuild")
	require.ErrorIs(t, err, errUsage)
}
