// Package library discovers audio files on disk and captures the leading
// bytes of each one, where embedded tags live.
package library

import (
	"path"
	"strings"
)

var audioExtensions = []string{"mp3", "wav", "flac", "ogg", "m4a", "aac", "wma", "opus"}

var audioExtensionSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(audioExtensions))
	for _, ext := range audioExtensions {
		set[ext] = struct{}{}
	}
	return set
}()

// AudioExtensions returns the recognised audio extensions, without the dot.
func AudioExtensions() []string {
	exts := make([]string, len(audioExtensions))
	copy(exts, audioExtensions)
	return exts
}

// IsAudioFile reports whether name (a base name or a full path) has one of
// the recognised audio extensions. The comparison ignores case.
func IsAudioFile(name string) bool {
	// Backslashes count as separators on every OS so Windows paths classify
	// the same everywhere.
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || dot == len(base)-1 {
		return false
	}
	_, ok := audioExtensionSet[strings.ToLower(base[dot+1:])]
	return ok
}
