// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package exclude

import (
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
)

// Matcher evaluates exclusion patterns against paths relative to a root.
//
// A trailing slash restricts a pattern to directories and a pattern without
// a slash matches the final path element at any depth, which is how rsync
// reads the same list.
type Matcher struct {
	root    string
	any     gitignore.IgnoreMatcher
	dirOnly gitignore.IgnoreMatcher
}

// NewMatcher compiles patterns for the tree rooted at root.
func NewMatcher(root string, patterns []string) *Matcher {
	var anyKind, dirs []string
	for _, p := range patterns {
		if trimmed := strings.TrimRight(p, "/"); trimmed != p {
			if trimmed != "" {
				dirs = append(dirs, trimmed)
			}
			continue
		}
		anyKind = append(anyKind, p)
	}
	return &Matcher{
		root:    root,
		any:     compile(root, anyKind),
		dirOnly: compile(root, dirs),
	}
}

func compile(root string, patterns []string) gitignore.IgnoreMatcher {
	return gitignore.NewGitIgnoreFromReader(root, strings.NewReader(strings.Join(patterns, "\n")))
}

// Excluded reports whether rel (slash separated, relative to the root) is
// excluded. The root itself is never excluded.
func (m *Matcher) Excluded(rel string, isDir bool) bool {
	rel = strings.Trim(rel, "/")
	if rel == "" || rel == "." {
		return false
	}
	full := filepath.Join(m.root, filepath.FromSlash(rel))
	if m.any.Match(full, isDir) {
		return true
	}
	return isDir && m.dirOnly.Match(full, isDir)
}
