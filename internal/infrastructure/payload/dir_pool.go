// Package payload provides the directory-backed pool of initial payloads.
package payload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FreePeak/track-commands-ws/internal/domain"
)

// Extension is the suffix a file needs to be a pool entry.
const Extension = ".json"

// DirPool reads candidate payloads from a directory of JSON files.
// Nothing is cached, so files added or removed between sessions are picked up
// without a restart.
type DirPool struct {
	dir string
}

// NewDirPool creates a pool over dir.
func NewDirPool(dir string) *DirPool {
	return &DirPool{dir: dir}
}

// Dir returns the pool directory.
func (p *DirPool) Dir() string {
	return p.dir
}

// Entries lists the JSON files currently in the directory, sorted by name.
func (p *DirPool) Entries(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(p.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPayloadPoolUnavailable, p.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrPayloadPoolUnavailable, p.dir)
	}

	dirEntries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPayloadPoolUnavailable, p.dir, err)
	}

	names := make([]string, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() || !IsEntry(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", domain.ErrPayloadPoolEmpty, Extension, p.dir)
	}

	sort.Strings(names)
	return names, nil
}

// Load reads the named entry and decodes it into a generic JSON value.
func (p *DirPool) Load(ctx context.Context, name string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid payload entry name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(p.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("payload %s disappeared: %w", name, err)
		}
		return nil, fmt.Errorf("read payload %s: %w", name, err)
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", name, err)
	}
	return value, nil
}

// IsEntry reports whether a file name qualifies as a pool entry.
func IsEntry(name string) bool {
	return strings.HasSuffix(name, Extension) && !strings.HasPrefix(name, ".")
}
