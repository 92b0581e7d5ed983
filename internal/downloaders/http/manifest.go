package chunkhttp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Manifest records which chunks the Assembler has already copied into the
// output. It is written before a chunk's temp file is deleted, so a crash
// mid-assembly can tell copied chunks apart from missing ones.
type Manifest struct {
	URL    string `yaml:"url"`
	Size   int64  `yaml:"size"`
	Chunks int    `yaml:"chunks"`
	Copied []int  `yaml:"copied"`

	path string
}

func NewManifest(path, url string, size int64, chunks int) *Manifest {
	return &Manifest{URL: url, Size: size, Chunks: chunks, path: path}
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing assembly manifest: %w", err)
	}
	m.path = path
	return &m, nil
}

// Matches reports whether m was written for the same download layout.
func (m *Manifest) Matches(other *Manifest) bool {
	return m != nil && other != nil && m.URL == other.URL && m.Size == other.Size && m.Chunks == other.Chunks
}

func (m *Manifest) IsCopied(index int) bool {
	return m != nil && slices.Contains(m.Copied, index)
}

func (m *Manifest) MarkCopied(index int) error {
	if m == nil || m.IsCopied(index) {
		return nil
	}
	m.Copied = append(m.Copied, index)
	return m.save()
}

func (m *Manifest) save() error {
	if m.path == "" {
		return nil
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding assembly manifest: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("creating assembly manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing assembly manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("syncing assembly manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing assembly manifest: %w", err)
	}
	return os.Rename(tmp.Name(), m.path)
}

func (m *Manifest) Remove() error {
	if m == nil || m.path == "" {
		return nil
	}
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
