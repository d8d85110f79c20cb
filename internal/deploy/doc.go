// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

// Package deploy synchronizes a local tree to a directory on a remote host.
//
// The default transport composes an `sshpass ... rsync` argument vector and
// runs it without a shell, passing the tool's output through. The sftp
// transport does the same job natively over golang.org/x/crypto/ssh and
// github.com/pkg/sftp for hosts where the external tools are unavailable.
package deploy // import "github.com/toeirei/rdeploy/internal/deploy"
