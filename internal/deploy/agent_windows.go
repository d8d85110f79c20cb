//go:build windows
// +build windows

// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"io"
	"os"

	"github.com/Microsoft/go-winio"
	"github.com/davidmz/go-pageant"
	"github.com/toeirei/rdeploy/internal/logging"
	"golang.org/x/crypto/ssh/agent"
)

const openSSHAgentPipe = `\\.\pipe\openssh-ssh-agent`

// getSSHAgent prefers a running Pageant, then the OpenSSH agent pipe named
// by SSH_AUTH_SOCK or its default location. Pageant is reached through
// window messages, so there is no connection to close for it.
func getSSHAgent() (agent.Agent, io.Closer) {
	if pageant.Available() {
		return pageant.New(), nil
	}

	pipe := os.Getenv("SSH_AUTH_SOCK")
	if pipe == "" {
		pipe = openSSHAgentPipe
	}
	timeout := agentDialTimeout
	conn, err := winio.DialPipe(pipe, &timeout)
	if err != nil {
		logging.Debugf("ssh agent at %s unavailable: %v", pipe, err)
		return nil, nil
	}
	return agent.NewClient(conn), conn
}
