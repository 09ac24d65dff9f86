package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// collection is one JSON array file. Callers hold mu across a whole
// load-mutate-save cycle.
type collection[T any] struct {
	path  string
	mu    sync.Mutex
	write func(name string, data []byte, perm fs.FileMode) error
}

func newCollection[T any](path string) *collection[T] {
	return &collection[T]{path: path, write: os.WriteFile}
}

// ensure creates the parent directory and an empty array file if missing.
func (c *collection[T]) ensure() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	_, err := os.Stat(c.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", c.path, err)
	}
	if err := os.WriteFile(c.path, []byte("[]\n"), 0o644); err != nil {
		return fmt.Errorf("create %s: %w", c.path, err)
	}
	return nil
}

func (c *collection[T]) loadUnlocked() ([]T, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *collection[T]) saveUnlocked(items []T) error {
	if err := c.ensure(); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.path, err)
	}
	data = append(data, '\n')
	if err := c.write(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}
