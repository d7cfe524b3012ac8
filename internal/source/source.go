// Package source loads raw event documents for the engine.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Source yields one raw event document per call.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// ErrNotFound is returned when a file source points at a missing file.
var ErrNotFound = errors.New("events file not found")

// File reads an exported event dump from disk.
type File struct {
	Path string
}

// NewFile returns a Source reading path.
func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Load(_ context.Context) ([]byte, error) {
	if f.Path == "" {
		return nil, fmt.Errorf("file source: path is required")
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, f.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read events %s: %w", f.Path, err)
	}
	return data, nil
}
