package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core/course"
)

type LocalStore struct {
	dir string
}

var _ course.FileStore = (*LocalStore)(nil) // interface compliance check

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Save writes `r` to `<dir>/<key>` and returns that path.
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	fp, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload directory")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing file")
	}
	return fp, errors.Wrap(f.Close(), "closing file")
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + key))
	if clean == string(filepath.Separator) || strings.Contains(key, "..") {
		return "", errors.Errorf("invalid file key %q", key)
	}
	return filepath.Join(s.dir, clean), nil
}

// Delete removes `<dir>/<key>`. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
