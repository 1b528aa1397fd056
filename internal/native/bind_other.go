//go:build !(darwin || freebsd || linux || windows)

package native

import "github.com/roach88/lmdbkv/internal/kverr"

// Bind always fails on platforms without dynamic loading.
func Bind(path string, _ Loader, _ uintptr, _ Symbols) (*Lib, error) {
	return nil, kverr.Wrap(kverr.NativeInterop, errUnsupported, "bind engine library").WithContext(path)
}
