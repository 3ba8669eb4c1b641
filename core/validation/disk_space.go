package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"hullbridge/core"
)

// DiskSpaceInfo describes the filesystem holding a path.
type DiskSpaceInfo struct {
	Path  string
	Total int64
	Free  int64
}

// DiskSpaceError reports too little free space.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, core.FormatBytes(e.Required), core.FormatBytes(e.Available))
}

// GetDiskSpace inspects the filesystem holding path. Paths that do not exist
// yet (a database about to be created) resolve to their nearest existing
// ancestor.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	dir, err := existingDir(path)
	if err != nil {
		return nil, err
	}
	total, free, err := getDiskSpace(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk space for %s: %w", dir, err)
	}
	return &DiskSpaceInfo{Path: dir, Total: total, Free: free}, nil
}

// CheckDiskSpace returns a *DiskSpaceError when fewer than requiredBytes are
// free at path.
func CheckDiskSpace(path string, requiredBytes int64) error {
	info, err := GetDiskSpace(path)
	if err != nil {
		return err
	}
	if info.Free < requiredBytes {
		return &DiskSpaceError{Path: info.Path, Required: requiredBytes, Available: info.Free}
	}
	return nil
}

func existingDir(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		info, err := os.Stat(abs)
		if err == nil {
			if info.IsDir() {
				return abs, nil
			}
			return filepath.Dir(abs), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("cannot access path %s: %w", abs, err)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("cannot access path %s: %w", path, err)
		}
		abs = parent
	}
}
