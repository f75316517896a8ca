package library

import "strings"

// ShouldSkipDir reports whether a directory with the given base name is left
// out of a scan: hidden directories and platform housekeeping folders.
func ShouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "System Volume Information", "$RECYCLE.BIN":
		return true
	}
	return false
}
