// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime"
)

// Name is the binary name reported in version strings and user agents.
const Name = "slideshow-runner"

// Set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info contains version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// Get returns the current version information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s, %s/%s)",
		Name, i.Version, i.Commit, i.Date, i.GoVersion, i.OS, i.Arch)
}

// UserAgent returns the value sent in the User-Agent header.
func (i Info) UserAgent() string {
	return Name + "/" + i.Version
}
