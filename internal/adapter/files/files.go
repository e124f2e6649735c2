// Package files reads pipeline inputs and commits outputs atomically.
package files

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/couchcryptid/region-choropleth/internal/domain"
)

// Read returns the contents of a required input file. Any failure is an
// *domain.IOError carrying the path.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// WriteAtomic replaces path with data. The bytes go to a temporary file in
// the same directory which is renamed over path only after a successful
// write and sync, so readers never observe a partial file.
func WriteAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &domain.IOError{Op: "write", Path: path, Err: fmt.Errorf("create directory: %w", err)}
		}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return &domain.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
