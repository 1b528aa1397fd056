//go:build darwin || freebsd || linux

package native

import "github.com/ebitengine/purego"

type systemLoader struct{}

// SystemLoader returns the host's dynamic loader.
func SystemLoader() Loader { return systemLoader{} }

func (systemLoader) Open(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func (systemLoader) Lookup(module uintptr, name string) (uintptr, error) {
	return purego.Dlsym(module, name)
}

func (systemLoader) Close(module uintptr) error {
	return purego.Dlclose(module)
}
