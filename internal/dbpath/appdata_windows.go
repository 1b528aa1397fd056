//go:build windows

package dbpath

import "golang.org/x/sys/windows"

// knownAppData asks the shell for the Roaming AppData folder when APPDATA
// is unset, as it is for some service accounts.
func knownAppData() string {
	dir, err := windows.KnownFolderPath(windows.FOLDERID_RoamingAppData, windows.KF_FLAG_DEFAULT)
	if err != nil {
		return ""
	}
	return dir
}
