package dynamics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// pathLocks serializes read-modify-write cycles on the same epoch file within
// the process. Entries are never removed; a run touches a bounded number of
// epoch files.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var epochFileLocks = &pathLocks{locks: make(map[string]*sync.Mutex)}

// lock acquires the mutex for path and returns its release function.
func (p *pathLocks) lock(path string) func() {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	p.mu.Lock()
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, so a concurrent reader sees either the old or the new content.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dynamics-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
