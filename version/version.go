package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set with -ldflags -X.
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
)

const shortCommit = 7

// Info describes the running build.
type Info struct {
	Version   string    `json:"version"`
	Module    string    `json:"module,omitempty"`
	GitCommit string    `json:"git_commit,omitempty"`
	GitBranch string    `json:"git_branch,omitempty"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date,omitzero"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// Get returns the build information of the running binary.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t.UTC()
		}
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	info.Module = bi.Main.Path
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		case "vcs.time":
			if info.BuildDate.IsZero() {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					info.BuildDate = t.UTC()
				}
			}
		}
	}
	if len(info.GitCommit) > shortCommit {
		info.GitCommit = info.GitCommit[:shortCommit]
	}
	return info
}

// Short returns "<version>[-<commit>][-dirty]".
func Short() string {
	return Get().Short()
}

// Full returns the short version plus a non-default branch and the build date.
func Full() string {
	return Get().String()
}

// Short returns "<version>[-<commit>][-dirty]".
func (i Info) Short() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if i.IsDirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

func (i Info) String() string {
	s := i.Short()
	if i.GitBranch != "" && i.GitBranch != "main" && i.GitBranch != "master" {
		s += " (" + i.GitBranch + ")"
	}
	if !i.BuildDate.IsZero() {
		s += fmt.Sprintf(" built %s", i.BuildDate.Format(time.RFC3339))
	}
	if i.GoVersion != "" {
		s += " " + i.GoVersion
	}
	return s
}
