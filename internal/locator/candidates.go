package locator

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
)

// Source tells where a candidate came from.
type Source string

const (
	SourceConfig   Source = "config"
	SourceCheckout Source = "checkout"
	SourceSystem   Source = "system"
	SourceBundled  Source = "bundled"
	SourceDefault  Source = "default"
)

// Candidate is one place the engine library may be loaded from.
type Candidate struct {
	Path   string
	Source Source
}

// IsBare reports whether the candidate is a bare name left to the OS
// loader's search rather than a filesystem path.
func (c Candidate) IsBare() bool {
	return c.Source == SourceDefault
}

// Candidates returns the ordered search list, without duplicates.
func (l *Locator) Candidates() []Candidate {
	lib := l.Platform.LibraryName()
	var out []Candidate
	seen := make(map[string]bool)
	add := func(src Source, path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, Candidate{Path: path, Source: src})
	}

	for _, p := range l.LibraryPaths {
		add(SourceConfig, p)
	}

	for _, root := range l.checkouts() {
		add(SourceCheckout, filepath.Join(root, "native", l.Platform.Tag(), lib))
		add(SourceCheckout, filepath.Join(root, "native", "target", "release", lib))
	}

	for _, dir := range l.systemDirs() {
		add(SourceSystem, filepath.Join(dir, lib))
	}

	if exe, err := l.Executable(); err == nil && exe != "" {
		dir := filepath.Dir(exe)
		add(SourceBundled, filepath.Join(dir, "native", l.Platform.Tag(), lib))
		add(SourceBundled, filepath.Join(dir, lib))
		add(SourceBundled, filepath.Join(dir, "..", "lib", lib))
	}

	add(SourceDefault, lib)
	return out
}

// checkouts returns local copies of this module: versions in the module
// cache, newest first, then the working directory if its go.mod declares
// the module.
func (l *Locator) checkouts() []string {
	var roots []string

	if cache := l.modCache(); cache != "" && l.ModulePath != "" {
		parent, base := filepath.Split(filepath.FromSlash(l.ModulePath))
		dir := filepath.Join(cache, parent)
		entries, err := os.ReadDir(dir)
		if err == nil {
			var versions []string
			for _, e := range entries {
				v, ok := strings.CutPrefix(e.Name(), base+"@")
				if ok && e.IsDir() && semver.IsValid(v) {
					versions = append(versions, v)
				}
			}
			slices.SortFunc(versions, func(a, b string) int { return semver.Compare(b, a) })
			for _, v := range versions {
				roots = append(roots, filepath.Join(dir, base+"@"+v))
			}
		}
	}

	if wd, err := l.Getwd(); err == nil && wd != "" {
		data, err := os.ReadFile(filepath.Join(wd, "go.mod"))
		if err == nil && modfile.ModulePath(data) == l.ModulePath {
			roots = append(roots, wd)
		}
	}
	return roots
}

// modCache mirrors the go command's GOMODCACHE default.
func (l *Locator) modCache() string {
	if dir := l.Getenv("GOMODCACHE"); dir != "" {
		return dir
	}
	if gopath := l.Getenv("GOPATH"); gopath != "" {
		first, _, _ := strings.Cut(gopath, string(os.PathListSeparator))
		return filepath.Join(first, "pkg", "mod")
	}
	home := l.Getenv("HOME")
	if home == "" {
		home = l.Getenv("USERPROFILE")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, "go", "pkg", "mod")
}

func (l *Locator) systemDirs() []string {
	switch l.Platform.OS {
	case "windows":
		var dirs []string
		if pf := l.Getenv("ProgramFiles"); pf != "" {
			dirs = append(dirs, filepath.Join(pf, "lmdbkv", "bin"))
		}
		if local := l.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "lmdbkv", "bin"))
		}
		return dirs
	case "darwin", "ios":
		if l.Platform.Arch == "arm64" {
			return []string{"/opt/homebrew/lib", "/usr/local/lib", "/usr/lib"}
		}
		return []string{"/usr/local/lib", "/opt/homebrew/lib", "/usr/lib"}
	case "linux":
		dirs := []string{"/usr/local/lib", "/usr/lib"}
		if triplet := l.Platform.multiarch(); triplet != "" {
			dirs = append(dirs, filepath.Join("/usr/lib", triplet))
		}
		return append(dirs, "/usr/lib64", "/lib")
	default:
		return []string{"/usr/local/lib", "/usr/lib"}
	}
}
