package validation

import (
	"fmt"
	"os"
)

// FileExistsError indicates a missing or unusable file.
type FileExistsError struct {
	Path    string
	Message string
}

func (e *FileExistsError) Error() string {
	return e.Message
}

// CheckFileExists returns nil if path names a regular file, or a
// *FileExistsError describing why not.
func CheckFileExists(path string) error {
	if path == "" {
		return &FileExistsError{Path: path, Message: "file path cannot be empty"}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileExistsError{Path: path, Message: fmt.Sprintf("file not found: %s", path)}
		}
		return &FileExistsError{Path: path, Message: fmt.Sprintf("error checking file %s: %v", path, err)}
	}

	if info.IsDir() {
		return &FileExistsError{Path: path, Message: fmt.Sprintf("path is a directory, not a file: %s", path)}
	}
	return nil
}

// CheckWritableDir verifies that a file can be created next to path.
func CheckWritableDir(path string) error {
	dir, err := existingDir(path)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".hullbridge-check-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
