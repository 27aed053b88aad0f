// Package report persists raw and translated report documents and locates run artifacts.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/todayvn/internal/models"
)

// Artifacts lists every file a run can produce
type Artifacts struct {
	Raw        string // {id}_raw.yaml
	Translated string // {id}.yaml
	Narration  string // {id}.txt
	Digest     string // {id}.md
	DigestHTML string // {id}.html
	Audio      string // {id}.mp3
	Video      string // {id}_final.mp4
}

// Store reads and writes run artifacts under one data directory
type Store struct {
	dir    string
	logger arbor.ILogger
}

// NewStore creates the data directory if needed
func NewStore(dir string, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// Artifacts returns the artifact paths for runID
func (s *Store) Artifacts(runID string) Artifacts {
	path := func(name string) string { return filepath.Join(s.dir, name) }
	return Artifacts{
		Raw:        path(runID + "_raw.yaml"),
		Translated: path(runID + ".yaml"),
		Narration:  path(runID + ".txt"),
		Digest:     path(runID + ".md"),
		DigestHTML: path(runID + ".html"),
		Audio:      path(runID + ".mp3"),
		Video:      path(runID + "_final.mp4"),
	}
}

// BackgroundCandidates returns the per-run background clips in lookup order
func (s *Store) BackgroundCandidates(runID string) []string {
	return []string{
		filepath.Join(s.dir, runID+".mov"),
		filepath.Join(s.dir, runID+".mp4"),
	}
}

// SaveDocument writes doc as YAML to path. The write is atomic: readers never see a partial file.
func (s *Store) SaveDocument(path string, doc *models.ReportDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := WriteFile(path, data); err != nil {
		return err
	}

	s.logger.Debug().Str("path", path).Int("sections", len(doc.Sections)).Msg("Report saved")
	return nil
}

// LoadDocument reads a YAML report from path
func (s *Store) LoadDocument(path string) (*models.ReportDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}

	var doc models.ReportDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &doc, nil
}

// WriteFile writes data through a temp file in the same directory and renames it into place
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// Exists reports whether path is an existing non-empty regular file
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
