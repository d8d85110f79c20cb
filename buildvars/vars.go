// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars holds the release identity stamped in by the linker:
//
//	go build -ldflags "-X github.com/toeirei/rdeploy/buildvars.Version=v1.2.0 -X github.com/toeirei/rdeploy/buildvars.Commit=3f2c1ab" ./cmd/rdeploy
package buildvars

// Both are empty in untagged builds.
var (
	Version string
	Commit  string
)

// String is the version shown by `rdeploy --version`: Version or "dev",
// followed by the commit when one was stamped.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if Commit != "" {
		v += " (" + Commit + ")"
	}
	return v
}
