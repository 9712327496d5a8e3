package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// StaticSources serves the sources listed in the main config file.
type StaticSources struct {
	sources []domain.Source
}

var _ ports.SourceProvider = (*StaticSources)(nil)

// NewStaticSources copies the list.
func NewStaticSources(sources []domain.Source) *StaticSources {
	return &StaticSources{sources: append([]domain.Source(nil), sources...)}
}

// Sources returns a copy of the configured list.
func (s *StaticSources) Sources(context.Context) ([]domain.Source, error) {
	return append([]domain.Source(nil), s.sources...), nil
}

// FileSources serves sources from a YAML file and reloads it when it
// changes. A file that fails to parse keeps the previous list.
type FileSources struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	sources []domain.Source
}

var _ ports.SourceProvider = (*FileSources)(nil)

type sourcesFile struct {
	Sources []domain.Source `yaml:"sources"`
}

// LoadFileSources reads path once. Call Watch to follow changes.
func LoadFileSources(path string, logger *slog.Logger) (*FileSources, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := &FileSources{path: filepath.Clean(path), debounce: 100 * time.Millisecond, logger: logger}
	if err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Sources returns the last successfully loaded list.
func (f *FileSources) Sources(context.Context) ([]domain.Source, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]domain.Source(nil), f.sources...), nil
}

// Watch reloads the file on change until ctx is done. The parent directory
// is watched so editors that replace the file by rename are picked up.
func (f *FileSources) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	go func() {
		defer watcher.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != f.path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					pending = time.After(f.debounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("sources watcher error", "error", err)
			case <-pending:
				pending = nil
				if err := f.reload(); err != nil {
					f.logger.Error("reload sources failed, keeping previous list", "path", f.path, "error", err)
					continue
				}
				f.logger.Info("sources reloaded", "path", f.path, "count", f.count())
			}
		}
	}()
	return nil
}

func (f *FileSources) reload() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read sources %s: %w", f.path, err)
	}
	sources, err := ParseSources(raw)
	if err != nil {
		return fmt.Errorf("parse sources %s: %w", f.path, err)
	}
	f.mu.Lock()
	f.sources = sources
	f.mu.Unlock()
	return nil
}

func (f *FileSources) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sources)
}

// ParseSources accepts either a bare YAML list or a document with a
// top-level "sources" key, and validates every entry.
func ParseSources(raw []byte) ([]domain.Source, error) {
	var list []domain.Source
	if err := yaml.Unmarshal(raw, &list); err != nil {
		var doc sourcesFile
		if docErr := yaml.Unmarshal(raw, &doc); docErr != nil {
			return nil, docErr
		}
		list = doc.Sources
	}
	for i, s := range list {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
	}
	return list, nil
}
