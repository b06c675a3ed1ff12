// Package buildinfo holds build-time metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/diana-archive/gazetteer/internal/buildinfo.Version=v1.2.0"
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Set by the linker.
var (
	Version   = ""
	BuildDate = ""
	Commit    = ""
)

// Context is a snapshot of the build metadata.
type Context struct {
	version   string
	buildDate string
	commit    string
}

// NewContext creates a Context from explicit values.
func NewContext(version, buildDate, commit string) *Context {
	return &Context{version: version, buildDate: buildDate, commit: commit}
}

// Current returns the metadata of the running binary. The VCS revision
// recorded by the Go toolchain is used when Commit was not injected.
func Current() *Context {
	commit := Commit
	if commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					commit = s.Value
					break
				}
			}
		}
	}
	return NewContext(Version, BuildDate, commit)
}

// Version returns the release version.
func (c *Context) Version() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.version)
}

// BuildDate returns the build timestamp.
func (c *Context) BuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.buildDate)
}

// Commit returns the source revision.
func (c *Context) Commit() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.commit)
}

// String renders the metadata on one line for the version command.
func (c *Context) String() string {
	return fmt.Sprintf("gazetteer %s (commit %s, built %s, %s %s/%s)",
		c.Version(), c.Commit(), c.BuildDate(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownValue
	}
	return s
}
