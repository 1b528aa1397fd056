package dbpath

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/roach88/lmdbkv/internal/kverr"
)

// probePrefix names the marker file used to test write permission.
const probePrefix = ".lmdbkv-probe-"

// EnsureDirectoryExists creates the parent directories of path and confirms
// the directory is writable by creating and removing a marker file.
// Failures are PLATFORM errors.
func EnsureDirectoryExists(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kverr.Wrap(kverr.Platform, err, "create database directory").WithContext(dir)
	}

	marker := filepath.Join(dir, probePrefix+uuid.Must(uuid.NewV7()).String())
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return kverr.Wrap(kverr.Platform, err, "database directory is not writable").WithContext(dir)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(marker)
		return kverr.Wrap(kverr.Platform, err, "close write probe").WithContext(dir)
	}
	if err := os.Remove(marker); err != nil {
		return kverr.Wrap(kverr.Platform, err, "remove write probe").WithContext(marker)
	}
	return nil
}
