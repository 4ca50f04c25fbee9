// pkg/report/writer.go
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// File is one output produced by a write function
type File struct {
	Name  string
	Write func(io.Writer) error
}

// DirWriter replaces an output directory as a whole. Files are staged in a
// sibling directory and swapped in only when every file was written, so the
// directory holds either the previous complete set or the new one.
type DirWriter struct {
	dir    string
	logger *zap.Logger
}

// NewDirWriter creates a writer for dir
func NewDirWriter(dir string, logger *zap.Logger) (*DirWriter, error) {
	if dir == "" {
		return nil, errors.New("output directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirWriter{dir: filepath.Clean(dir), logger: logger.Named("report-writer")}, nil
}

// Dir returns the output directory
func (w *DirWriter) Dir() string {
	return w.dir
}

// Commit writes all files and swaps them into place. On error nothing in the
// output directory changes and the staging directory is removed.
func (w *DirWriter) Commit(files []File) (err error) {
	parent, base := filepath.Split(w.dir)
	if parent == "" {
		parent = "."
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create output parent %s: %w", parent, err)
	}

	stage := filepath.Join(parent, "."+base+".staging-"+uuid.NewString())
	if err := os.Mkdir(stage, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(stage)
		}
	}()

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if f.Name == "" || filepath.Base(f.Name) != f.Name || seen[f.Name] {
			return fmt.Errorf("invalid output file name %q", f.Name)
		}
		seen[f.Name] = true

		if err := writeFile(filepath.Join(stage, f.Name), f.Write); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}

	if err := w.swap(stage, parent, base); err != nil {
		return err
	}

	w.logger.Info("Wrote outputs", zap.String("dir", w.dir), zap.Int("files", len(files)))
	return nil
}

// swap moves the staged directory into place, keeping the old one until the
// new one is installed
func (w *DirWriter) swap(stage, parent, base string) error {
	_, statErr := os.Stat(w.dir)
	if errors.Is(statErr, os.ErrNotExist) {
		if err := os.Rename(stage, w.dir); err != nil {
			return fmt.Errorf("failed to install outputs: %w", err)
		}
		return nil
	}
	if statErr != nil {
		return fmt.Errorf("failed to stat output directory: %w", statErr)
	}

	old := filepath.Join(parent, "."+base+".old-"+uuid.NewString())
	if err := os.Rename(w.dir, old); err != nil {
		return fmt.Errorf("failed to move previous outputs aside: %w", err)
	}
	if err := os.Rename(stage, w.dir); err != nil {
		if restoreErr := os.Rename(old, w.dir); restoreErr != nil {
			w.logger.Error("Failed to restore previous outputs",
				zap.String("backup", old),
				zap.Error(restoreErr))
		}
		return fmt.Errorf("failed to install outputs: %w", err)
	}
	if err := os.RemoveAll(old); err != nil {
		w.logger.Warn("Failed to remove previous outputs", zap.String("path", old), zap.Error(err))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
