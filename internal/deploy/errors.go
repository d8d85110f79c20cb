// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolNotFound means an external program could not be started.
	ErrToolNotFound = errors.New("transfer tool not found")
	// ErrTransferFailed is wrapped by every *TransferError.
	ErrTransferFailed = errors.New("transfer failed")
)

// TransferError reports a transfer that ran but did not succeed.
type TransferError struct {
	Transport Transport
	ExitCode  int
	// Err is the underlying cause, nil when only an exit code is known.
	Err error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("%s %s (exit code %d)", e.Transport, ErrTransferFailed, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrTransferFailed and the cause to errors.Is/As.
func (e *TransferError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransferFailed}
	}
	return []error{ErrTransferFailed, e.Err}
}

// IsConnectionTimeoutError checks if an error is a connection timeout.
func IsConnectionTimeoutError(err error) bool {
	return errContains(err, "timeout", "deadline exceeded")
}

// IsConnectionRefusedError checks if the remote end refused or is unreachable.
func IsConnectionRefusedError(err error) bool {
	return errContains(err, "connection refused", "no route to host")
}

// IsAuthenticationError checks if an error is an authentication failure.
func IsAuthenticationError(err error) bool {
	return errContains(err, "unable to authenticate", "authentication failed", "permission denied", "public key")
}

// IsHostKeyError checks if an error comes from host key verification.
func IsHostKeyError(err error) bool {
	return errContains(err, "host key", "knownhosts")
}

func errContains(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

// ClassifyConnectionError wraps a dial error with a message naming the
// failure kind. It returns nil for a nil error.
func ClassifyConnectionError(host string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsHostKeyError(err):
		return fmt.Errorf("host key verification failed for %s: %w", host, err)
	case IsAuthenticationError(err):
		return fmt.Errorf("authentication failed for %s: %w", host, err)
	case IsConnectionRefusedError(err):
		return fmt.Errorf("connection to %s refused: %w", host, err)
	case IsConnectionTimeoutError(err):
		return fmt.Errorf("connection to %s timed out: %w", host, err)
	}
	return fmt.Errorf("failed to connect to %s: %w", host, err)
}
