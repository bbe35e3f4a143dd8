// Package catalog maps audio files to genre labels using a metadata table.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options describes the layout of the metadata table.
type Options struct {
	// HeaderRows is the number of leading rows to skip.
	HeaderRows int
	// IDColumn is the offset of the track id column.
	IDColumn int
	// GenreColumn is the offset of the genre column.
	GenreColumn int
	// Extensions selects audio files in the track directory (e.g. ".mp3").
	Extensions []string
}

// DefaultOptions matches the FMA tracks.csv layout.
func DefaultOptions() Options {
	return Options{HeaderRows: 3, IDColumn: 0, GenreColumn: 40, Extensions: []string{".mp3"}}
}

// MissingGenreError reports a track id that has no catalog entry.
type MissingGenreError struct {
	TrackID string
}

func (e *MissingGenreError) Error() string {
	return fmt.Sprintf("catalog: no genre for track %q", e.TrackID)
}

// Map is a track id to genre mapping.
type Map map[string]string

// Lookup returns the genre of trackID or a *MissingGenreError.
func (m Map) Lookup(trackID string) (string, error) {
	genre, ok := m[trackID]
	if !ok {
		return "", &MissingGenreError{TrackID: trackID}
	}
	return genre, nil
}

// TrackID derives a track id from a file name: the text before the first dot
// with leading zeros removed, so "000002.mp3" becomes "2".
func TrackID(fileName string) string {
	base := filepath.Base(fileName)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimLeft(base, "0")
}

// ListTracks returns the paths of files in dir whose extension matches one of
// exts (case-insensitive), sorted by name.
func ListTracks(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read track dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !hasExtension(e.Name(), exts) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func hasExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// BuildMap reads the metadata table at csvPath and returns the genres of the
// tracks present in dir.
func BuildMap(ctx context.Context, dir, csvPath string, opts Options) (Map, error) {
	files, err := ListTracks(dir, opts.Extensions)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(files))
	for _, f := range files {
		ids[TrackID(f)] = struct{}{}
	}
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: open metadata: %w", err)
	}
	defer f.Close()
	return ReadMap(ctx, f, ids, opts)
}

// ReadMap parses a metadata table and keeps rows whose id is in ids. Rows too
// short to hold the genre column are skipped.
func ReadMap(ctx context.Context, r io.Reader, ids map[string]struct{}, opts Options) (Map, error) {
	if opts.IDColumn < 0 || opts.GenreColumn < 0 {
		return nil, fmt.Errorf("catalog: invalid column offsets id=%d genre=%d", opts.IDColumn, opts.GenreColumn)
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	out := Map{}
	for line := 0; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: metadata row %d: %w", line+1, err)
		}
		if line < opts.HeaderRows {
			continue
		}
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(record) <= opts.IDColumn || len(record) <= opts.GenreColumn {
			continue
		}
		id := record[opts.IDColumn]
		if _, ok := ids[id]; !ok {
			continue
		}
		out[id] = record[opts.GenreColumn]
	}
	return out, nil
}
