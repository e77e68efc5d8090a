package service

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// SelectionStore — файловый список включённых стратегий.
// Пустой список = включены все. Refresh перечитывает файл по mtime,
// так селекцию можно менять на лету, не трогая процесс.
type SelectionStore struct {
	path string

	mu      sync.Mutex
	enabled map[string]struct{}
	mtime   time.Time
}

type selectionFile struct {
	Strategies []string `yaml:"strategies"`
}

func NewSelectionStore(path string) *SelectionStore {
	s := &SelectionStore{
		path:    path,
		enabled: make(map[string]struct{}),
	}
	_ = s.load()
	return s
}

func (s *SelectionStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var f selectionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return errors.Wrap(err, "selection unmarshal")
	}

	enabled := make(map[string]struct{}, len(f.Strategies))
	for _, name := range f.Strategies {
		enabled[name] = struct{}{}
	}

	s.mu.Lock()
	s.enabled = enabled
	if st, err := os.Stat(s.path); err == nil {
		s.mtime = st.ModTime()
	}
	s.mu.Unlock()
	return nil
}

// Refresh перечитывает файл, если тот менялся.
func (s *SelectionStore) Refresh() {
	st, err := os.Stat(s.path)
	if err != nil {
		return
	}
	s.mu.Lock()
	stale := st.ModTime().After(s.mtime)
	s.mu.Unlock()
	if stale {
		_ = s.load()
	}
}

func (s *SelectionStore) IsEnabled(name string) bool {
	s.Refresh()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.enabled) == 0 {
		return true
	}
	_, ok := s.enabled[name]
	return ok
}

// Enabled фильтрует каталог по текущей селекции.
func (s *SelectionStore) Enabled() []string {
	out := make([]string, 0, len(catalog))
	for _, d := range Catalog() {
		if s.IsEnabled(d.Name) {
			out = append(out, d.Name)
		}
	}
	return out
}

// Set перезаписывает селекцию на диске.
func (s *SelectionStore) Set(names []string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "selection mkdir")
	}
	data, err := yaml.Marshal(selectionFile{Strategies: names})
	if err != nil {
		return errors.Wrap(err, "selection marshal")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrap(err, "selection write")
	}

	enabled := make(map[string]struct{}, len(names))
	for _, name := range names {
		enabled[name] = struct{}{}
	}
	s.mu.Lock()
	s.enabled = enabled
	if st, err := os.Stat(s.path); err == nil {
		s.mtime = st.ModTime()
	}
	s.mu.Unlock()
	return nil
}
