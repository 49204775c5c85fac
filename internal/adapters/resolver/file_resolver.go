package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

// catalogFile is the on-disk YAML layout:
//
//	entries:
//	  - key: 5
//	    description: Welcome to the lab
//	    asset: /videos/lab.mp4
type catalogFile struct {
	Entries []domain.ResolvedEntry `yaml:"entries"`
}

// FileResolver serves a YAML catalog and can follow edits to it.
type FileResolver struct {
	path string
	obs  ports.Observability
	cat  catalog
}

func NewFileResolver(path string, obs ports.Observability) (*FileResolver, error) {
	if path == "" {
		return nil, errors.New("resolver: catalog path is required")
	}
	if obs == nil {
		return nil, errors.New("resolver: observability is required")
	}
	r := &FileResolver{path: path, obs: obs}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileResolver) Lookup(key int32) (domain.ResolvedEntry, bool) { return r.cat.lookup(key) }

func (r *FileResolver) Len() int { return r.cat.len() }

// Reload re-reads the catalog. On error the previous entries stay in place.
func (r *FileResolver) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse catalog %s: %w", r.path, err)
	}
	r.cat.replace(cf.Entries)
	r.obs.LogInfo("catalog_loaded",
		ports.Field{Key: "path", Value: r.path},
		ports.Field{Key: "entries", Value: r.cat.len()})
	return nil
}

// Watch reloads the catalog whenever the file is written or replaced, until
// ctx is cancelled. The parent directory is watched so atomic renames by
// editors are picked up too.
func (r *FileResolver) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(r.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(r.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.obs.LogError("catalog_reload_failed", err, ports.Field{Key: "path", Value: r.path})
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.obs.LogError("catalog_watch_error", err)
		}
	}
}

var _ ports.KeyResolver = (*FileResolver)(nil)
