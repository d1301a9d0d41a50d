// Package state persists the versions accepted for each module so they
// survive restarts.
package state

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

type document struct {
	Modules map[string]string `toml:"modules"`
}

// Store maps module names to their accepted version.
type Store struct {
	mu      sync.RWMutex
	path    string
	modules map[string]string
}

// Open loads the store at path. A missing file is an empty store and an
// empty path keeps the store in memory only.
func Open(path string) (*Store, error) {
	s := &Store{path: path, modules: map[string]string{}}
	if path == "" {
		return s, nil
	}
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read state")
	}
	doc := document{}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse state %s", path)
	}
	for module, version := range doc.Modules {
		s.modules[module] = version
	}
	return s, nil
}

// Version returns the accepted version of module.
func (s *Store) Version(module string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.modules[module]
	return v, ok
}

// SetVersion records version for module and writes the store out.
func (s *Store) SetVersion(module, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.modules[module]
	s.modules[module] = version
	if err := s.save(); err != nil {
		if had {
			s.modules[module] = prev
		} else {
			delete(s.modules, module)
		}
		return err
	}
	return nil
}

// save must be called with mu held.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	raw, err := toml.Marshal(document{Modules: s.modules})
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create state directory")
	}
	tmp, err := ioutil.TempFile(dir, ".state-")
	if err != nil {
		return errors.Wrap(err, "create state file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write state")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "write state")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replace state")
}
