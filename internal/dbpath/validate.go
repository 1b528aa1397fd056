package dbpath

import (
	"strings"
	"unicode/utf8"

	"github.com/roach88/lmdbkv/internal/kverr"
)

// forbiddenChars are rejected by at least one common filesystem.
const forbiddenChars = `<>:"|?*`

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Validate checks a path for the target platform. bare marks a name with
// no directory component, which on Windows must not be a device name.
func Validate(goos, p string, bare bool) error {
	if p == "" {
		return kverr.New(kverr.Validation, "path is empty")
	}

	limit := MaxPathOther
	if goos == "windows" {
		limit = MaxPathWindows
	}
	if utf8.RuneCountInString(p) > limit {
		return kverr.Newf(kverr.Validation, "path exceeds %d characters", limit).WithContext(p)
	}

	rest := p
	if goos == "windows" {
		rest = p[len(volumeName(p)):]
	}
	for _, c := range rest {
		if c < 0x20 || c == 0x7f {
			return kverr.New(kverr.Validation, "path contains a control character").WithContext(p)
		}
		if strings.ContainsRune(forbiddenChars, c) {
			return kverr.Newf(kverr.Validation, "path contains forbidden character %q", c).WithContext(p)
		}
	}

	if bare && goos == "windows" && IsReservedName(p) {
		return kverr.New(kverr.Validation, "name is a reserved device name").WithContext(p)
	}
	return nil
}

// IsReservedName reports whether a filename is a Windows device name, with
// or without an extension ("CON", "con.lmdb", "COM1.txt").
func IsReservedName(name string) bool {
	stem, _, _ := strings.Cut(name, ".")
	stem = strings.TrimRight(stem, " ")
	return reservedNames[strings.ToUpper(stem)]
}

// volumeName returns the drive ("C:") or UNC ("\\server\share") prefix of
// a Windows path.
func volumeName(p string) string {
	if len(p) >= 2 && isDriveLetter(p[0]) && p[1] == ':' {
		return p[:2]
	}
	if len(p) >= 2 && isSlash(p[0]) && isSlash(p[1]) {
		// \\server\share
		n := 2
		for part := 0; part < 2; part++ {
			for n < len(p) && !isSlash(p[n]) {
				n++
			}
			if part == 0 && n < len(p) {
				n++
			}
		}
		return p[:n]
	}
	return ""
}

func isSlash(c byte) bool {
	return c == '\\' || c == '/'
}
