// Package version reports the maestro release version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// override is set at link time:
//
//	go build -ldflags "-X github.com/ShayCichocki/maestro/internal/version.override=v1.2.3"
var override string

// Get returns the current version, with whitespace trimmed. A link-time
// override wins over the embedded VERSION file.
func Get() string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(versionContent)
}
