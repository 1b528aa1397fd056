//go:build windows

package native

import "golang.org/x/sys/windows"

type systemLoader struct{}

// SystemLoader returns the host's dynamic loader.
func SystemLoader() Loader { return systemLoader{} }

func (systemLoader) Open(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	return uintptr(h), err
}

func (systemLoader) Lookup(module uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(module), name)
}

func (systemLoader) Close(module uintptr) error {
	return windows.FreeLibrary(windows.Handle(module))
}
