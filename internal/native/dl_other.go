//go:build !(darwin || freebsd || linux || windows)

package native

type systemLoader struct{}

// SystemLoader returns a loader that fails every call.
func SystemLoader() Loader { return systemLoader{} }

func (systemLoader) Open(string) (uintptr, error)            { return 0, errUnsupported }
func (systemLoader) Lookup(uintptr, string) (uintptr, error) { return 0, errUnsupported }
func (systemLoader) Close(uintptr) error                     { return nil }
