package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// Reader reads text files relative to a base directory
type Reader struct {
	fs      afero.Fs
	baseDir string
}

func NewReader(fsys afero.Fs, baseDir string) *Reader {
	return &Reader{fs: fsys, baseDir: baseDir}
}

// Path returns the location name resolves to
func (r *Reader) Path(name string) string {
	return filepath.Join(r.baseDir, name)
}

// Read returns the content of name as text. ok is false when the file does not exist.
func (r *Reader) Read(ctx context.Context, name string) (content string, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	path := r.Path(name)
	exists, err := afero.Exists(r.fs, path)
	if err != nil {
		return "", false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !exists {
		return "", false, nil
	}
	data, err := afero.ReadFile(r.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), true, nil
}
