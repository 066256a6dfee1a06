package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

type logger interface {
	Debugf(format string, v ...any)
	Errorf(format string, v ...any)
}

// Store persists named collections as JSON documents under a single
// directory, one file per collection. All access goes through one mutex, so
// concurrent readers and writers within the process serialize here.
type Store struct {
	dir    string
	logger logger

	mu       sync.Mutex
	onChange []func(name string)
	diag     func(op string, name string, err error)
}

func New(dir string, logger logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "error creating store directory: %s", dir)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// OnChange registers fn to run after every successful Save with the name of
// the collection that was rewritten. Hooks run synchronously on the writing
// goroutine, after the store lock is released.
func (s *Store) OnChange(fn func(name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// SetDiagnostic installs an observer for conditions the Load/Save contract
// swallows: corrupt reads and failed writes. Intended for tests and debugging,
// it does not alter behavior.
func (s *Store) SetDiagnostic(fn func(op string, name string, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diag = fn
}

func (s *Store) report(op string, name string, err error) {
	if s.diag != nil {
		s.diag(op, name, err)
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load returns the collection stored under name, or fallback if the file is
// absent, unreadable, or not valid JSON for T. It never fails: a corrupted
// collection is indistinguishable from an absent one.
func Load[T any](s *Store, name string, fallback T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debugf("Load: Error reading collection: %s, err: %v", name, err)
			s.report("load", name, err)
		}
		return fallback
	}

	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		s.logger.Debugf("Load: Corrupted collection treated as absent: %s, err: %v", name, err)
		s.report("load", name, err)
		return fallback
	}
	return v
}

// Save serializes v and fully replaces the collection stored under name.
// The write goes to a temp file first and is renamed into place, so readers
// never observe a partial document.
func Save[T any](s *Store, name string, v T) error {
	s.mu.Lock()

	b, err := json.Marshal(v)
	if err != nil {
		s.mu.Unlock()
		s.report("save", name, err)
		return errors.Wrapf(err, "error marshalling collection: %s", name)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		s.mu.Unlock()
		s.report("save", name, err)
		return errors.Wrapf(err, "error creating temp file for collection: %s", name)
	}
	if _, err = tmp.Write(b); err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.path(name))
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		s.mu.Unlock()
		s.report("save", name, err)
		return errors.Wrapf(err, "error writing collection: %s", name)
	}

	hooks := make([]func(string), len(s.onChange))
	copy(hooks, s.onChange)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(name)
	}
	return nil
}
