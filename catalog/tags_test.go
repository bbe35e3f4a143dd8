package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// id3WithGenre builds a minimal ID3v2.3 tag holding a single TCON frame.
func id3WithGenre(genre string) []byte {
	body := append([]byte{0}, genre...) // ISO-8859-1 text
	frame := []byte("TCON")
	n := len(body)
	frame = append(frame, byte(n>>24), byte(n>>16), byte(n>>8), byte(n), 0, 0)
	frame = append(frame, body...)

	size := len(frame)
	header := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}
	out := append(header, frame...)
	return append(out, make([]byte, 64)...)
}

func TestTagGenre(t *testing.T) {
	path := filepath.Join(t.TempDir(), "000009.mp3")
	require.NoError(t, os.WriteFile(path, id3WithGenre("Rock"), 0o644))

	genre, err := TagGenre(path)
	require.NoError(t, err)
	assert.Equal(t, "Rock", genre)
}

func TestTagGenre_NoTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "000010.mp3")
	require.NoError(t, os.WriteFile(path, make([]byte, 256), 0o644))

	_, err := TagGenre(path)
	assert.Error(t, err)

	_, err = TagGenre(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
