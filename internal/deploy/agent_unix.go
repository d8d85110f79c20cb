//go:build !windows
// +build !windows

// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"io"
	"net"
	"os"

	"github.com/toeirei/rdeploy/internal/logging"
	"golang.org/x/crypto/ssh/agent"
)

// getSSHAgent connects to the agent behind SSH_AUTH_SOCK. The closer ends
// that connection; both are nil when no agent answers.
func getSSHAgent() (agent.Agent, io.Closer) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil
	}
	conn, err := net.DialTimeout("unix", sock, agentDialTimeout)
	if err != nil {
		logging.Debugf("ssh agent at %s unavailable: %v", sock, err)
		return nil, nil
	}
	return agent.NewClient(conn), conn
}
