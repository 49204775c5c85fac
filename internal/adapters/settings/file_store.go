package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/kioskbridge/internal/ports"
)

type document struct {
	BridgeHost string `yaml:"bridge_host"`
}

// FileStore keeps operator settings in a small YAML file. Writes go through
// a temp file and rename so a crash never leaves a torn document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("settings: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

// LoadHost returns the persisted bridge host, or "" when none was saved.
func (s *FileStore) LoadHost() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return "", err
	}
	return doc.BridgeHost, nil
}

func (s *FileStore) SaveHost(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	doc.BridgeHost = strings.TrimSpace(host)
	return s.persistLocked(doc)
}

func (s *FileStore) readLocked() (document, error) {
	var doc document
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("settings parse: %w", err)
	}
	return doc, nil
}

func (s *FileStore) persistLocked(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

var _ ports.SettingsStore = (*FileStore)(nil)
