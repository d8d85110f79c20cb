// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

// Package exclude holds the exclusion patterns applied to every deployment
// and a matcher that evaluates them against paths of the local tree.
package exclude

import "slices"

// Common lists the patterns skipped for every project: the deployment and
// build scripts, logs, editor state, version control metadata, Python
// bytecode and backup files.
var Common = []string{
	"deploy.py",
	"build.sh",
	"*.log",
	".idea/",
	".vimprj/",
	".git/",
	".gitignore",
	"__pycache__/",
	"*.pyc",
	"*.bak",
}

// Per-project extension lists, appended after Common.
var (
	Cybermapper = []string{}
	Novitest    = []string{}
)

// Assemble concatenates common and every extension list in order.
// Duplicates are kept.
func Assemble(common []string, extensions ...[]string) []string {
	lists := append([][]string{common}, extensions...)
	out := slices.Concat(lists...)
	if out == nil {
		out = []string{}
	}
	return out
}

// Default returns the effective pattern list. extra is appended to the
// cybermapper list.
func Default(extra ...string) []string {
	return Assemble(Common, slices.Concat(Cybermapper, extra), Novitest)
}
