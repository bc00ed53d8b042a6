package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileOrderStore keeps one JSON file per order under Dir.
type FileOrderStore struct {
	Dir string
}

func NewFileOrderStore(dir string) *FileOrderStore {
	return &FileOrderStore{Dir: dir}
}

func (s *FileOrderStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid order id %q", id)
	}
	return filepath.Join(s.Dir, id+".json"), nil
}

func (s *FileOrderStore) Get(ctx context.Context, id string) ([]byte, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	return data, err
}

// Put writes through a temp file and rename so readers never see a partial record.
func (s *FileOrderStore) Put(ctx context.Context, id string, data []byte) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create orders dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write order %q: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write order %q: %w", id, err)
	}
	return os.Rename(tmp.Name(), p)
}

type FileMenuSource struct {
	FilePath string
}

func NewFileMenuSource(filePath string) *FileMenuSource {
	return &FileMenuSource{FilePath: filePath}
}

func (m *FileMenuSource) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(m.FilePath)
}
