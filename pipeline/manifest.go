package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

var manifestHeader = []string{"path", "transformed", "inferred", "detections", "message"}

// Entry is one recording in a worklist
type Entry struct {
	Path        string
	Transformed bool
	Inferred    bool
	Detections  int
	Message     string
}

// Manifest is the CSV worklist of recordings to process
type Manifest struct {
	Entries []Entry
}

// NewManifest lists paths as unprocessed entries
func NewManifest(paths []string) *Manifest {
	m := &Manifest{Entries: make([]Entry, 0, len(paths))}
	for _, p := range paths {
		m.Entries = append(m.Entries, Entry{Path: p})
	}
	return m
}

// Merge appends the paths not already listed and returns how many were added.
// Existing entries keep their flags.
func (m *Manifest) Merge(paths []string) int {
	seen := make(map[string]bool, len(m.Entries))
	for _, e := range m.Entries {
		seen[e.Path] = true
	}
	added := 0
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		m.Entries = append(m.Entries, Entry{Path: p})
		added++
	}
	return added
}

// Pending returns the indexes of entries not yet inferred
func (m *Manifest) Pending() []int {
	var idx []int
	for i, e := range m.Entries {
		if !e.Inferred {
			idx = append(idx, i)
		}
	}
	return idx
}

// ReadManifest parses a worklist CSV
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// DecodeManifest parses worklist CSV from r
func DecodeManifest(r io.Reader) (*Manifest, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty manifest")
	}
	if err != nil {
		return nil, err
	}
	if !slices.Equal(header, manifestHeader) {
		return nil, fmt.Errorf("unexpected header %q, want %q", strings.Join(header, ","), strings.Join(manifestHeader, ","))
	}

	m := &Manifest{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return m, nil
		}
		if err != nil {
			return nil, err
		}

		line, _ := cr.FieldPos(0)
		e := Entry{Path: rec[0], Message: rec[4]}
		if e.Path == "" {
			return nil, fmt.Errorf("line %d: empty path", line)
		}
		if e.Transformed, err = parseFlag(rec[1]); err != nil {
			return nil, fmt.Errorf("line %d: transformed: %w", line, err)
		}
		if e.Inferred, err = parseFlag(rec[2]); err != nil {
			return nil, fmt.Errorf("line %d: inferred: %w", line, err)
		}
		if rec[3] != "" {
			if e.Detections, err = strconv.Atoi(rec[3]); err != nil {
				return nil, fmt.Errorf("line %d: detections: %w", line, err)
			}
		}
		m.Entries = append(m.Entries, e)
	}
}

// empty flags read as false so hand-written worklists can leave them blank
func parseFlag(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// WriteManifest replaces path with m, via a temp file in the same directory
func WriteManifest(m *Manifest, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := m.Encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Encode writes m as CSV
func (m *Manifest) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(manifestHeader); err != nil {
		return err
	}
	for _, e := range m.Entries {
		err := cw.Write([]string{
			e.Path,
			strconv.FormatBool(e.Transformed),
			strconv.FormatBool(e.Inferred),
			strconv.Itoa(e.Detections),
			e.Message,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
