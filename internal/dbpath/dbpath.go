// Package dbpath resolves logical database names to validated file paths.
//
// A bare name ("cache") or a filename ("sessions.lmdb") lands beneath the
// platform data directory in a namespace subdirectory owned by lmdbkv.
// Absolute paths are used as given once they pass validation.
package dbpath

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/roach88/lmdbkv/internal/kverr"
)

// Defaults for the namespace directory and the extension appended to bare names.
const (
	DefaultNamespace = "lmdbkv"
	DefaultExtension = ".lmdb"
)

// Maximum path lengths accepted per platform family.
const (
	MaxPathWindows = 260
	MaxPathOther   = 4096
)

// Resolver computes database paths for one target platform.
// The zero value is not usable; construct with NewResolver.
type Resolver struct {
	// GOOS selects the platform conventions ("linux", "darwin", "windows", ...).
	GOOS string

	// Namespace is the subdirectory all databases live under.
	Namespace string

	// Extension is appended to names that have none.
	Extension string

	// BaseDir overrides the platform data directory when set.
	BaseDir string

	// Getenv and Getwd are injectable for tests.
	Getenv func(string) string
	Getwd  func() (string, error)
}

// NewResolver returns a Resolver for the host platform.
func NewResolver() *Resolver {
	return &Resolver{
		GOOS:      runtime.GOOS,
		Namespace: DefaultNamespace,
		Extension: DefaultExtension,
		Getenv:    os.Getenv,
		Getwd:     os.Getwd,
	}
}

// Resolve maps a logical database name to a canonical file path.
func (r *Resolver) Resolve(name string) (string, error) {
	if name == "" {
		return "", kverr.New(kverr.Validation, "database name is empty")
	}

	if isRooted(r.GOOS, name) {
		if err := Validate(r.GOOS, name, false); err != nil {
			return "", err
		}
		return filepath.Clean(name), nil
	}

	rel := filepath.FromSlash(name)
	if r.GOOS == "windows" {
		sep := string(filepath.Separator)
		rel = strings.ReplaceAll(strings.ReplaceAll(name, `\`, sep), "/", sep)
	}
	bare := !strings.ContainsRune(rel, filepath.Separator)
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == ".." {
			return "", kverr.New(kverr.Validation, "database name escapes the data directory").WithContext(name)
		}
	}

	if filepath.Ext(rel) == "" && r.Extension != "" {
		rel += r.Extension
	}

	if err := Validate(r.GOOS, rel, bare); err != nil {
		return "", err
	}

	base, err := r.DataDir()
	if err != nil {
		return "", err
	}
	full := filepath.Join(base, r.Namespace, rel)
	if err := Validate(r.GOOS, full, false); err != nil {
		return "", err
	}
	return full, nil
}

// DataDir returns the platform data directory databases are created under,
// without the namespace component.
func (r *Resolver) DataDir() (string, error) {
	if r.BaseDir != "" {
		return r.BaseDir, nil
	}

	var dir string
	switch r.GOOS {
	case "windows":
		dir = r.Getenv("APPDATA")
		if dir == "" {
			dir = knownAppData()
		}
	case "darwin", "ios":
		if home := r.home(); home != "" {
			dir = filepath.Join(home, "Library", "Application Support")
		}
	default:
		dir = r.Getenv("XDG_DATA_HOME")
		if dir == "" {
			if home := r.home(); home != "" {
				dir = filepath.Join(home, ".local", "share")
			}
		}
	}
	if dir != "" {
		return dir, nil
	}

	wd, err := r.Getwd()
	if err != nil {
		return "", kverr.Wrap(kverr.Platform, err, "no data directory and working directory is unavailable")
	}
	return wd, nil
}

func (r *Resolver) home() string {
	if home := r.Getenv("HOME"); home != "" {
		return home
	}
	return r.Getenv("USERPROFILE")
}

// isRooted reports whether p is absolute on the target platform. Windows
// rules are applied by hand so they can be exercised from any host.
func isRooted(goos, p string) bool {
	if goos != "windows" {
		return strings.HasPrefix(p, "/")
	}
	if strings.HasPrefix(p, `\`) || strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && isDriveLetter(p[0]) && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
