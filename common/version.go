// Copyright 2021 JD Fergason
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// set by the mage build through -ldflags
var (
	commitHash string
	buildDate  string
)

const programName = "perfstats"

// Version is the SemVer 2.0.0 version of perfstats
type Version struct {
	Major int
	Minor int
	Patch int

	// Suffix marks a pre-release, e.g. "dev" or "rc1"; empty for releases
	Suffix string
}

// String formats v; pre-release builds carry the commit as build metadata
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Suffix == "" {
		return s
	}

	s += "-" + v.Suffix
	if commit := revision(); commit != "" {
		s += "+" + strings.ToLower(commit)
	}
	return s
}

// BuildInfo describes the running perfstats binary
type BuildInfo struct {
	Program      string
	Version      string
	Platform     string
	GoVersion    string
	Commit       string
	Date         string
	Dependencies []string
}

// ReadBuildInfo collects the version, commit and toolchain of the binary.
// The module dependencies are only collected when withDeps is set.
func ReadBuildInfo(withDeps bool) BuildInfo {
	info := BuildInfo{
		Program:   programName,
		Version:   "v" + CurrentVersion.String(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion: runtime.Version(),
		Commit:    revision(),
		Date:      buildDate,
	}

	if info.Date == "" {
		info.Date = vcsSetting("vcs.time")
	}
	if info.Date == "" {
		info.Date = "unknown"
	}

	if withDeps {
		info.Dependencies = dependencies()
	}
	return info
}

func (info BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s\n\n", info.Program, info.Version, info.Platform)
	fmt.Fprintf(&sb, "Build Date: %s\nCommit: %s\nBuilt with: %s", info.Date, info.Commit, info.GoVersion)

	if len(info.Dependencies) > 0 {
		sb.WriteString("\n\nDependencies:\n\n")
		sb.WriteString(strings.Join(info.Dependencies, "\n"))
	}
	return sb.String()
}

// BuildVersionString is the text printed by "perfstats version"
func BuildVersionString(withDeps bool) string {
	return ReadBuildInfo(withDeps).String()
}

// revision is the commit set at link time, falling back to the VCS stamp the
// go toolchain embeds
func revision() string {
	if commitHash != "" {
		return commitHash
	}
	return vcsSetting("vcs.revision")
}

func vcsSetting(key string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range bi.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// dependencies lists the modules linked into the binary as path="version",
// sorted by path
func dependencies() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}
	sort.Strings(deps)
	return deps
}
