// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"strconv"
	"strings"
)

// Tools names the external programs of the rsync transport.
type Tools struct {
	Rsync   string
	Sshpass string
}

// DefaultTools resolves both programs through PATH.
func DefaultTools() Tools {
	return Tools{Rsync: "rsync", Sshpass: "sshpass"}
}

// Plan is everything needed to compose a transfer.
type Plan struct {
	Source      string
	Target      Target
	Credentials Credentials
	Patterns    []string
	Tools       Tools
}

// Command is a program invocation as an argument vector.
type Command struct {
	Path string
	Args []string
	// Env is appended to the parent environment of the child.
	Env []string

	// secretAt is the argv index of the password, 0 when it is not on the
	// argument list.
	secretAt int
}

// Argv returns the full vector, program first.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String renders the command as POSIX shell text. Exclusion patterns are
// always single-quoted.
func (c Command) String() string {
	return c.render(false)
}

// Redacted is String with the password replaced, for logs and dry runs.
func (c Command) Redacted() string {
	return c.render(true)
}

func (c Command) render(redact bool) string {
	argv := c.Argv()
	parts := make([]string, 0, len(argv))
	for i, a := range argv {
		switch {
		case redact && c.secretAt > 0 && i == c.secretAt:
			parts = append(parts, "'******'")
		case i > 0 && argv[i-1] == "--exclude":
			parts = append(parts, singleQuote(a))
		default:
			parts = append(parts, shellQuote(a))
		}
	}
	return strings.Join(parts, " ")
}

// BuildCommand composes
//
//	sshpass -p <password> rsync --delete --exclude '<p>'... [-e 'ssh -p N'] -av <src>/ <user>@<host>:<path>/
func BuildCommand(p Plan) Command {
	tools := p.Tools
	if tools.Rsync == "" {
		tools.Rsync = DefaultTools().Rsync
	}
	if tools.Sshpass == "" {
		tools.Sshpass = DefaultTools().Sshpass
	}

	cmd := Command{Path: tools.Sshpass}
	switch p.Credentials.Mode {
	case PasswordEnv:
		cmd.Args = append(cmd.Args, "-e")
		cmd.Env = append(cmd.Env, "SSHPASS="+p.Credentials.Password)
	case PasswordFile:
		cmd.Args = append(cmd.Args, "-f", p.Credentials.File)
	default:
		cmd.Args = append(cmd.Args, "-p", p.Credentials.Password)
		cmd.secretAt = len(cmd.Args)
	}

	cmd.Args = append(cmd.Args, tools.Rsync, "--delete")
	for _, pattern := range p.Patterns {
		cmd.Args = append(cmd.Args, "--exclude", pattern)
	}
	if _, port := p.Target.endpoint(); port != defaultSSHPort {
		cmd.Args = append(cmd.Args, "-e", "ssh -p "+strconv.Itoa(port))
	}
	cmd.Args = append(cmd.Args, "-av", sourceArg(p.Source), p.Target.Remote())
	return cmd
}

// sourceArg adds the trailing slash that copies the contents of the
// directory rather than the directory itself.
func sourceArg(src string) string {
	return strings.TrimRight(src, "/") + "/"
}

func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellQuote leaves common safe characters unquoted and single-quotes
// everything else.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return false
		}
		switch r {
		case '-', '_', '.', '/', '@', ':', ',', '+', '=':
			return false
		}
		return true
	}) == -1 {
		return s
	}
	return singleQuote(s)
}
