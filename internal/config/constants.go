// Package config holds jdbasic's ambient constants and its optional on-disk
// settings file (§2 AMBIENT STACK: Configuration), grounded on the
// teacher's internal/config/constants.go (bare exported constants plus a
// TrimSourceExt/HasSourceExt pair) and on funxy's internal/ext/config.go for
// the YAML-via-yaml.v3 loading shape.
package config

// Version is the current jdbasic version.
var Version = "0.1.0"

const SourceFileExt = ".jdb"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".jdb", ".bas"}

// ModuleFileExt is the file extension of jdbasic module files. The
// compiler does not check it: prescan accepts `EXPORT MODULE` anywhere.
const ModuleFileExt = ".jdb"

// DefaultDebugPort is the default listen port for the line-oriented
// debugger transport (§6).
const DefaultDebugPort = 4711

// DefaultPrompt and ContinuationPrompt are the REPL's prompt strings.
const (
	DefaultPrompt      = "jdb> "
	ContinuationPrompt = "...> "
)

// TrimSourceExt removes any recognized source extension from a filename.
// Returns the original string if no extension matches.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt returns true if the path ends with any recognized source
// extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}
