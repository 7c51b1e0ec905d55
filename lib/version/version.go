// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version, set by hand for releases.
	Version = "0.1.0-dev"
)

// buildInfo is the subset of the toolchain's VCS stamp we report.
type buildInfo struct {
	commit string
	dirty  bool
	time   string
}

// resolve prefers ldflags values and falls back to settings from
// debug.ReadBuildInfo.
func resolve(settings []debug.BuildSetting) buildInfo {
	info := buildInfo{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if info.commit != "unknown" {
		return info
	}
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			info.commit = setting.Value
			if len(info.commit) > 12 {
				info.commit = info.commit[:12]
			}
		case "vcs.modified":
			info.dirty = setting.Value == "true"
		case "vcs.time":
			if info.time == "unknown" {
				info.time = setting.Value
			}
		}
	}
	return info
}

func current() buildInfo {
	var settings []debug.BuildSetting
	if built, ok := debug.ReadBuildInfo(); ok {
		settings = built.Settings
	}
	return resolve(settings)
}

func (b buildInfo) String() string {
	dirty := ""
	if b.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, b.commit, dirty, b.time)
}

// Info returns the one-line version string printed by `version`.
func Info() string {
	return current().String()
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Commit returns the git commit of the build, or "unknown".
func Commit() string {
	return current().commit
}
