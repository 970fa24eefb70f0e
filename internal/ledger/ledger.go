// Package ledger tracks which source files were already ingested.
//
// The ledger is a text file with one filename per line. It only grows: names are
// appended by Commit and never removed. Commit rewrites the file through a temp
// file and rename so a crash leaves either the old or the new ledger on disk.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ledger is the set of processed filenames backed by a file.
type Ledger struct {
	path string

	mu    sync.RWMutex
	names []string
	seen  map[string]struct{}
}

// Open loads the ledger at path. A missing file is an empty ledger.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		seen: make(map[string]struct{}),
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		l.add(name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}

	return l, nil
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.path
}

// Contains reports whether name was already processed.
func (l *Ledger) Contains(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[name]
	return ok
}

// Len returns the number of processed filenames.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

// Names returns the processed filenames in the order they were recorded.
func (l *Ledger) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Commit records names as processed and persists the ledger.
// Names already present are ignored. When nothing new is given the file is not touched.
// On a write failure the in-memory set is left unchanged.
func (l *Ledger) Commit(names ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var fresh []string
	pending := make(map[string]struct{})
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := l.seen[name]; ok {
			continue
		}
		if _, ok := pending[name]; ok {
			continue
		}
		pending[name] = struct{}{}
		fresh = append(fresh, name)
	}
	if len(fresh) == 0 {
		return nil
	}

	all := make([]string, 0, len(l.names)+len(fresh))
	all = append(all, l.names...)
	all = append(all, fresh...)
	if err := writeAtomic(l.path, all); err != nil {
		return err
	}

	for _, name := range fresh {
		l.add(name)
	}
	return nil
}

func (l *Ledger) add(name string) {
	if _, ok := l.seen[name]; ok {
		return
	}
	l.seen[name] = struct{}{}
	l.names = append(l.names, name)
}

func writeAtomic(path string, names []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	w := bufio.NewWriter(tmp)
	for _, name := range names {
		if _, err := w.WriteString(name + "\n"); err != nil {
			cleanup()
			return fmt.Errorf("failed to write temp ledger: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp ledger: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set ledger permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
