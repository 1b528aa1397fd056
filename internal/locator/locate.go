package locator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/lmdbkv/internal/kverr"
	"github.com/roach88/lmdbkv/internal/native"
)

// ModulePath is the import path local checkouts are matched against.
const ModulePath = "github.com/roach88/lmdbkv"

// Locator searches for and loads the engine library.
type Locator struct {
	Platform Platform

	// LibraryPaths are tried before any discovered location.
	LibraryPaths []string

	// ModulePath identifies local checkouts of this module.
	ModulePath string

	Loader native.Loader
	Logger *slog.Logger

	// Environment hooks, injectable for tests.
	Getenv     func(string) string
	Getwd      func() (string, error)
	Executable func() (string, error)
}

// New returns a Locator for the host using the system loader.
func New(libraryPaths []string, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		Platform:     Host(),
		LibraryPaths: libraryPaths,
		ModulePath:   ModulePath,
		Loader:       native.SystemLoader(),
		Logger:       logger,
		Getenv:       os.Getenv,
		Getwd:        os.Getwd,
		Executable:   os.Executable,
	}
}

// Attempt records the outcome of trying one candidate. Err is nil for the
// candidate that loaded.
type Attempt struct {
	Candidate
	Err error
}

func (a Attempt) String() string {
	if a.Err == nil {
		return fmt.Sprintf("%s [%s]: loaded", a.Path, a.Source)
	}
	return fmt.Sprintf("%s [%s]: %v", a.Path, a.Source, a.Err)
}

// errNotExist marks path candidates skipped because nothing is there.
var errNotExist = errors.New("file does not exist")

// Load returns the first candidate library that loads and exports every
// required symbol.
func (l *Locator) Load() (*native.Lib, error) {
	lib, _, err := l.Probe()
	return lib, err
}

// Probe is Load that also reports every candidate it tried, in order.
func (l *Locator) Probe() (*native.Lib, []Attempt, error) {
	var attempts []Attempt
	for _, c := range l.Candidates() {
		if !c.IsBare() {
			if _, err := os.Stat(c.Path); err != nil {
				attempts = append(attempts, Attempt{Candidate: c, Err: errNotExist})
				continue
			}
		}

		module, err := l.Loader.Open(c.Path)
		if err != nil {
			l.Logger.Debug("engine candidate failed to load", "path", c.Path, "source", c.Source, "error", err)
			attempts = append(attempts, Attempt{Candidate: c, Err: err})
			continue
		}

		lib, err := l.bind(c.Path, module)
		if err != nil {
			if cerr := l.Loader.Close(module); cerr != nil {
				l.Logger.Warn("unload rejected engine library", "path", c.Path, "error", cerr)
			}
			attempts = append(attempts, Attempt{Candidate: c, Err: err})
			return nil, attempts, err
		}

		attempts = append(attempts, Attempt{Candidate: c})
		l.Logger.Info("engine library loaded", "path", c.Path, "source", c.Source)
		if derived := lib.Derived(); len(derived) > 0 {
			l.Logger.Warn("engine library lacks optional symbols, using derived implementations",
				"path", c.Path, "symbols", derived)
		}
		return lib, attempts, nil
	}

	lines := make([]string, len(attempts))
	for i, a := range attempts {
		lines[i] = "  " + a.String()
	}
	return nil, attempts, kverr.Newf(kverr.NativeInterop,
		"no loadable engine library for %s; tried %d candidates:\n%s",
		l.Platform.Tag(), len(attempts), strings.Join(lines, "\n"))
}

// bind resolves every known export of module and binds the library.
func (l *Locator) bind(path string, module uintptr) (*native.Lib, error) {
	syms := native.Symbols{}
	for _, group := range [][]string{native.RequiredSymbols, native.OptionalSymbols} {
		for _, name := range group {
			addr, err := l.Loader.Lookup(module, name)
			if err != nil || addr == 0 {
				continue
			}
			syms[name] = addr
		}
	}
	return native.Bind(path, l.Loader, module, syms)
}
