// Package locator finds, loads and validates the engine's shared library.
//
// Candidates are searched in a fixed priority order: explicitly configured
// paths, local checkouts of this module, OS library directories, a bundle
// next to the running executable, and finally the bare library name for the
// OS loader's own search. The first candidate that loads wins; a library
// that loads but lacks required exports fails closed.
package locator

import (
	"fmt"
	"runtime"
)

// Platform identifies a target OS and architecture.
type Platform struct {
	OS   string
	Arch string
}

// Host returns the platform this process runs on.
func Host() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// LibraryName returns the engine's file name on p.
func (p Platform) LibraryName() string {
	switch p.OS {
	case "windows":
		return "lmdbkv.dll"
	case "darwin", "ios":
		return "liblmdbkv.dylib"
	default:
		return "liblmdbkv.so"
	}
}

// Tag returns the directory name prebuilt binaries for p are shipped under.
func (p Platform) Tag() string {
	return fmt.Sprintf("%s-%s", p.OS, p.Arch)
}

// multiarch returns the Debian multiarch triplet for linux, or "".
func (p Platform) multiarch() string {
	if p.OS != "linux" {
		return ""
	}
	switch p.Arch {
	case "amd64":
		return "x86_64-linux-gnu"
	case "arm64":
		return "aarch64-linux-gnu"
	default:
		return ""
	}
}
