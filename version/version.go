package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time using -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the build identity reported by the CLI and the /version endpoint.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"gitCommit,omitempty"`
	BuildTime time.Time `json:"buildTime,omitzero"`
	GoVersion string    `json:"goVersion"`
	Dirty     bool      `json:"dirty,omitempty"`
}

// Release reports whether the binary was built from a tagged version.
func (i Info) Release() bool {
	return i.Version != "dev" && !i.Dirty
}

// String renders "<version>[-<commit>][-dirty]".
func (i Info) String() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// Get returns the build identity, filling gaps from the embedded build info.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit}
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		info.BuildTime = t
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime.IsZero() {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					info.BuildTime = t
				}
			}
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// Full renders the version with its build time, for the CLI.
func Full() string {
	info := Get()
	if info.BuildTime.IsZero() {
		return info.String()
	}
	return fmt.Sprintf("%s (built %s)", info, info.BuildTime.UTC().Format(time.RFC3339))
}
