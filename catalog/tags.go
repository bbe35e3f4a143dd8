package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// TagGenre reads the genre embedded in an audio file's tags (ID3, MP4, FLAC,
// OGG). It returns a *MissingGenreError when the file carries no genre.
func TagGenre(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", fmt.Errorf("catalog: read tags %s: %w", path, err)
	}
	genre := strings.TrimSpace(m.Genre())
	if genre == "" {
		return "", &MissingGenreError{TrackID: TrackID(path)}
	}
	return genre, nil
}
