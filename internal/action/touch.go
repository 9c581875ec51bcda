package action

import (
	"fmt"
	"os"
	"time"
)

// Touch updates the access and modification times of path to now,
// creating an empty file when it does not exist. The parent directory
// must exist.
func Touch(path string) error {
	return touchAt(path, time.Now())
}

func touchAt(path string, now time.Time) error {
	if path == "" {
		return fmt.Errorf("touch: no target file configured")
	}

	info, err := os.Stat(path)

	switch {
	case err == nil && info.IsDir():
		return fmt.Errorf("touch %s: is a directory", path)
	case os.IsNotExist(err):
		f, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if createErr != nil {
			return fmt.Errorf("touch %s: %w", path, createErr)
		}

		if closeErr := f.Close(); closeErr != nil {
			return fmt.Errorf("touch %s: %w", path, closeErr)
		}
	case err != nil:
		return fmt.Errorf("touch %s: %w", path, err)
	}

	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}

	return nil
}
