//go:build darwin || freebsd || linux || windows

package native

import (
	"strings"

	"github.com/ebitengine/purego"

	"github.com/roach88/lmdbkv/internal/kverr"
)

// Bind builds a Lib from resolved symbol addresses. The module is owned by
// the returned Lib and unloaded by Release. On error the caller still owns
// the module.
func Bind(path string, loader Loader, module uintptr, syms Symbols) (*Lib, error) {
	if missing := MissingSymbols(syms); len(missing) > 0 {
		return nil, kverr.New(kverr.NativeInterop,
			"engine library is missing required symbols: "+strings.Join(missing, ", ")).WithContext(path)
	}

	l := &Lib{path: path, loader: loader, module: module}
	purego.RegisterFunc(&l.open, syms[SymOpen])
	purego.RegisterFunc(&l.post, syms[SymPost])
	purego.RegisterFunc(&l.put, syms[SymPut])
	purego.RegisterFunc(&l.get, syms[SymGet])
	purego.RegisterFunc(&l.del, syms[SymDelete])
	purego.RegisterFunc(&l.all, syms[SymAll])
	purego.RegisterFunc(&l.stats, syms[SymStats])
	purego.RegisterFunc(&l.clear, syms[SymClear])
	purego.RegisterFunc(&l.closeDB, syms[SymClose])
	purego.RegisterFunc(&l.freeString, syms[SymFreeString])

	if addr := syms[SymExists]; addr != 0 {
		purego.RegisterFunc(&l.exists, addr)
	} else {
		l.derived = append(l.derived, SymExists)
	}
	if addr := syms[SymKeys]; addr != 0 {
		purego.RegisterFunc(&l.keys, addr)
	} else {
		l.derived = append(l.derived, SymKeys)
	}
	return l, nil
}
