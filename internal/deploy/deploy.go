// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/toeirei/rdeploy/internal/exclude"
	"github.com/toeirei/rdeploy/internal/logging"
)

// Transport selects how files reach the remote host.
type Transport string

const (
	// TransportRsync runs sshpass and rsync as child processes.
	TransportRsync Transport = "rsync"
	// TransportSFTP syncs natively over an SSH connection.
	TransportSFTP Transport = "sftp"
)

// ParseTransport validates a configured transport. Empty means rsync.
func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(strings.TrimSpace(s))) {
	case "", TransportRsync:
		return TransportRsync, nil
	case TransportSFTP:
		return TransportSFTP, nil
	}
	return "", fmt.Errorf("unknown transport %q (want rsync or sftp)", s)
}

// Options configure one deployment.
type Options struct {
	Plan
	Transport Transport
	SSH       SSHOptions
	// DryRun prints what would run instead of running it.
	DryRun bool
	Stdout io.Writer
	Stderr io.Writer
}

// Result describes a finished deployment.
type Result struct {
	Transport Transport
	// ExitCode is the transfer tool's exit status; the sftp transport
	// reports 0 or 1.
	ExitCode int
	// Command is the composed invocation for the rsync transport.
	Command Command
	// Stats is set by the sftp transport.
	Stats *SyncStats

	cause error
}

// Success reports whether the transfer completed.
func (r Result) Success() bool {
	return r.ExitCode == 0 && r.cause == nil
}

// Err returns a *TransferError when the transfer did not succeed.
func (r Result) Err() error {
	if r.Success() {
		return nil
	}
	return &TransferError{Transport: r.Transport, ExitCode: r.ExitCode, Err: r.cause}
}

// NewSyncerFunc opens the sftp transport. Tests replace it.
var NewSyncerFunc = func(t Target, password string, opts SSHOptions, out io.Writer) (syncer, error) {
	return NewSyncer(t, password, opts, out)
}

type syncer interface {
	Sync(ctx context.Context, src, dest string, m *exclude.Matcher) (SyncStats, error)
	Close()
}

// Run performs the deployment and blocks until it is done. A transfer that
// runs and fails is reported through Result, not the returned error; the
// error is reserved for a transfer that could not be attempted at all.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	transport := opts.Transport
	if transport == "" {
		transport = TransportRsync
	}

	switch transport {
	case TransportRsync:
		return runRsync(ctx, opts)
	case TransportSFTP:
		return runSFTP(ctx, opts)
	}
	return Result{Transport: transport}, fmt.Errorf("unknown transport %q", transport)
}

func runRsync(ctx context.Context, opts Options) (Result, error) {
	cmd := BuildCommand(opts.Plan)
	res := Result{Transport: TransportRsync, Command: cmd}
	logging.Debugf("running %s", cmd.Redacted())

	if opts.DryRun {
		fmt.Fprintln(opts.Stdout, cmd.Redacted())
		return res, nil
	}

	code, err := NewRunnerFunc(opts.Stdout, opts.Stderr).Run(ctx, cmd)
	res.ExitCode = code
	if err != nil {
		return res, err
	}
	logging.Debugf("%s exited with status %d", cmd.Path, code)
	return res, nil
}

func runSFTP(ctx context.Context, opts Options) (Result, error) {
	res := Result{Transport: TransportSFTP}
	m := exclude.NewMatcher(opts.Source, opts.Patterns)

	if opts.DryRun {
		entries, err := scanLocal(opts.Source, m)
		if err != nil {
			return res, err
		}
		for _, e := range entries {
			fmt.Fprintln(opts.Stdout, displayName(e.rel, e.info.IsDir()))
		}
		return res, nil
	}

	password := opts.Credentials.Password
	if opts.Credentials.Mode == PasswordFile {
		data, err := os.ReadFile(opts.Credentials.File)
		if err != nil {
			return res, fmt.Errorf("read password file: %w", err)
		}
		// sshpass -f uses the first line of the file.
		password, _, _ = strings.Cut(string(data), "\n")
	}

	s, err := NewSyncerFunc(opts.Target, password, opts.SSH, opts.Stdout)
	if err != nil {
		res.ExitCode = 1
		res.cause = err
		return res, nil
	}
	defer s.Close()

	dest := strings.TrimRight(opts.Target.Path, "/")
	if dest == "" {
		dest = "/"
	}
	stats, err := s.Sync(ctx, opts.Source, dest, m)
	res.Stats = &stats
	if err != nil {
		res.ExitCode = 1
		res.cause = err
	}
	return res, nil
}
