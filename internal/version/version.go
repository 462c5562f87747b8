// Package version reports the build identity of aio-mgr.
//
// Version and Commit may be stamped at link time:
//
//	go build -ldflags="-X github.com/aio-mgr/aiomgr/internal/version.Version=v0.3.0 \
//	                   -X github.com/aio-mgr/aiomgr/internal/version.Commit=abc1234"
//
// Unset values are filled from the module's VCS build settings, and
// otherwise fall back to "dev" and "unknown".
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Version is the release version, also reported by the emulator's
	// "info" command.
	Version = ""
	// Commit is the short VCS revision, suffixed with -dirty for
	// modified trees.
	Commit = ""
)

const shortHashLen = 7

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fillFromSettings(info.Settings)
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func fillFromSettings(settings []debug.BuildSetting) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > shortHashLen {
			rev = rev[:shortHashLen]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	if Version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			Version = "dev-" + t.UTC().Format("20060102")
		}
	}
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
