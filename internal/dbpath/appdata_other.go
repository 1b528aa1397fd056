//go:build !windows

package dbpath

func knownAppData() string { return "" }
