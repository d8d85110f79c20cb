// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const defaultSSHPort = 22

// Target is the remote end of a deployment.
type Target struct {
	User string
	Host string
	Port int
	Path string
}

// Remote returns the rsync destination `user@host:path/`. The trailing
// slash makes rsync fill the directory instead of nesting into it. A port
// written into Host is left out; BuildCommand hands it to ssh instead.
func (t Target) Remote() string {
	host, _ := t.endpoint()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s@%s:%s/", t.User, host, strings.TrimRight(t.Path, "/"))
}

// Addr returns host:port for dialing.
func (t Target) Addr() string {
	host, port := t.endpoint()
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// endpoint splits Host into the bare host and the SSH port. A port already
// present in Host ("host:2222", "[::1]:2222") wins over Port.
func (t Target) endpoint() (string, int) {
	host, port := t.Host, t.Port
	if h, p, err := net.SplitHostPort(t.Host); err == nil {
		if n, err := net.LookupPort("tcp", p); err == nil {
			host, port = h, n
		}
	}
	if port <= 0 {
		port = defaultSSHPort
	}
	return host, port
}

// PasswordMode selects how sshpass receives the password.
type PasswordMode string

const (
	// PasswordArg passes the password as `sshpass -p <password>`.
	PasswordArg PasswordMode = "arg"
	// PasswordEnv uses `sshpass -e` with SSHPASS set in the child environment.
	PasswordEnv PasswordMode = "env"
	// PasswordFile uses `sshpass -f <file>`.
	PasswordFile PasswordMode = "file"
)

// ParsePasswordMode validates a configured mode. Empty means PasswordArg.
func ParsePasswordMode(s string) (PasswordMode, error) {
	switch PasswordMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PasswordArg:
		return PasswordArg, nil
	case PasswordEnv:
		return PasswordEnv, nil
	case PasswordFile:
		return PasswordFile, nil
	}
	return "", fmt.Errorf("unknown password mode %q (want arg, env or file)", s)
}

// Credentials authenticate against the target.
type Credentials struct {
	Password string
	Mode     PasswordMode
	// File holds the password when Mode is PasswordFile.
	File string
}
