package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/cperrin88/gostitch/pkg/fsutil"
)

// StagingInfo describes the contents of the staging directory. Files only
// linger there when an upload failed.
type StagingInfo struct {
	Directory string
	TotalSize int64
	Files     int
	Oldest    time.Time
}

// StagingManager manages the local staging directory for spool objects.
type StagingManager struct {
	directory string
}

// NewStagingManager creates a manager for the given staging directory.
func NewStagingManager(directory string) (*StagingManager, error) {
	if directory == "" {
		return nil, errors.ErrSpoolDirectory
	}
	if err := os.MkdirAll(directory, fsutil.DirModeSecure); err != nil {
		return nil, errors.Wrapf(err, "failed to create staging directory %s", directory)
	}
	return &StagingManager{directory: directory}, nil
}

// GetDirectory returns the staging directory path.
func (sm *StagingManager) GetDirectory() string {
	return sm.directory
}

// GetInfo returns size and file counts for the staging directory.
func (sm *StagingManager) GetInfo() (*StagingInfo, error) {
	info := &StagingInfo{Directory: sm.directory}

	err := filepath.Walk(sm.directory, func(_ string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		info.TotalSize += fi.Size()
		info.Files++
		if info.Oldest.IsZero() || fi.ModTime().Before(info.Oldest) {
			info.Oldest = fi.ModTime()
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error walking directory %s", sm.directory)
	}
	return info, nil
}

// Clean removes all staged files and returns the bytes freed.
func (sm *StagingManager) Clean() (int64, error) {
	info, err := sm.GetInfo()
	if err != nil {
		return 0, err
	}

	if err := os.RemoveAll(sm.directory); err != nil {
		return 0, errors.Wrapf(err, "failed to remove directory %s", sm.directory)
	}
	if err := os.MkdirAll(sm.directory, fsutil.DirModeSecure); err != nil {
		return info.TotalSize, errors.Wrapf(err, "failed to recreate directory %s", sm.directory)
	}
	return info.TotalSize, nil
}

// FormatBytes converts bytes to a human-readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T", "P", "E"}
	if exp < len(units) {
		return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
	}
	return fmt.Sprintf("%d B", bytes)
}
