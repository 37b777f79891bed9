package inventory

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExportFileName is the fixed name exports are saved under.
const ExportFileName = "export.xlsx"

// saveFile writes r to dir/name through a temporary file in dir, so a failed
// download never leaves a partial file behind under the final name.
func saveFile(dir, name string, r io.Reader) (path string, err error) {
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}

	path = filepath.Join(dir, name)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	return path, nil
}
