// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/sftp"
	"github.com/toeirei/rdeploy/internal/exclude"
	"github.com/toeirei/rdeploy/internal/logging"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultConnectionTimeout bounds the SSH handshake of the sftp transport.
const DefaultConnectionTimeout = 10 * time.Second

const agentDialTimeout = 2 * time.Second

// SSHOptions tune the sftp transport's connection.
type SSHOptions struct {
	KnownHosts    string
	StrictHostKey bool
	Timeout       time.Duration
}

// Package-level hooks so tests can avoid real network connections.
var (
	sshDial = func(network, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
		return ssh.Dial(network, addr, cfg)
	}
	newRemoteFS = func(c *ssh.Client) (remoteFS, error) {
		sc, err := sftp.NewClient(c)
		if err != nil {
			return nil, err
		}
		return sftpFS{c: sc}, nil
	}
	sshAgentGetter = getSSHAgent
)

// Syncer mirrors a local tree onto a remote directory over SFTP with the
// same delete and archive behaviour as `rsync --delete -a`.
type Syncer struct {
	client *ssh.Client
	fs     remoteFS
	out    io.Writer
	agent  io.Closer
}

// SyncStats counts what a Sync changed on the remote side.
type SyncStats struct {
	Transferred int
	Deleted     int
	Unchanged   int
}

// NewSyncer dials the target with password authentication, falling back to
// agent keys, and opens an SFTP session. Verbose output goes to out.
func NewSyncer(t Target, password string, opts SSHOptions, out io.Writer) (*Syncer, error) {
	hostKeyCallback, err := hostKeyCallbackFor(opts)
	if err != nil {
		return nil, err
	}

	auths := []ssh.AuthMethod{
		ssh.Password(password),
		// Servers that disable plain password auth usually still prompt
		// for it through keyboard-interactive.
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	}
	ag, agentConn := sshAgentGetter()
	if ag != nil {
		auths = append(auths, ssh.PublicKeysCallback(ag.Signers))
	}
	closeAgent := func() {
		if agentConn != nil {
			agentConn.Close()
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectionTimeout
	}
	config := &ssh.ClientConfig{
		User:            t.User,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	logging.Debugf("dialing %s as %s", t.Addr(), t.User)
	client, err := sshDial("tcp", t.Addr(), config)
	if err != nil {
		closeAgent()
		return nil, ClassifyConnectionError(t.Host, err)
	}

	rfs, err := newRemoteFS(client)
	if err != nil {
		if client != nil {
			client.Close()
		}
		closeAgent()
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Syncer{client: client, fs: rfs, out: out, agent: agentConn}, nil
}

// hostKeyCallbackFor checks against known_hosts when strict checking is on
// and the file when it exists; otherwise any host key is accepted.
func hostKeyCallbackFor(opts SSHOptions) (ssh.HostKeyCallback, error) {
	if opts.KnownHosts != "" {
		if _, err := os.Stat(opts.KnownHosts); err == nil {
			cb, err := knownhosts.New(opts.KnownHosts)
			if err != nil {
				return nil, fmt.Errorf("known_hosts: %w", err)
			}
			return cb, nil
		}
	}
	if opts.StrictHostKey {
		return nil, fmt.Errorf("known_hosts file not found at %q and strict host key checking is enabled", opts.KnownHosts)
	}
	logging.Debugf("no known_hosts file, host key will not be verified")
	return ssh.InsecureIgnoreHostKey(), nil
}

// Close closes the SFTP and SSH clients and the agent connection.
func (s *Syncer) Close() {
	if s.fs != nil {
		s.fs.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
	if s.agent != nil {
		s.agent.Close()
	}
}

type localEntry struct {
	rel  string
	abs  string
	info fs.FileInfo
}

// Sync makes dest an exact copy of src minus the excluded paths. Remote
// entries that are excluded are left alone, like rsync does.
func (s *Syncer) Sync(ctx context.Context, src, dest string, m *exclude.Matcher) (SyncStats, error) {
	var stats SyncStats

	entries, err := scanLocal(src, m)
	if err != nil {
		return stats, err
	}
	if err := s.fs.MkdirAll(dest); err != nil {
		return stats, fmt.Errorf("failed to create %s on remote: %w", dest, err)
	}

	keep := make(map[string]fs.FileMode, len(entries))
	for _, e := range entries {
		keep[e.rel] = e.info.Mode().Type()
	}
	if err := s.deleteExtraneous(ctx, dest, "", keep, m, &stats); err != nil {
		return stats, err
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		remote := path.Join(dest, e.rel)
		switch {
		case e.info.IsDir():
			err = s.syncDir(remote, e, &stats)
		case e.info.Mode()&fs.ModeSymlink != 0:
			err = s.syncSymlink(remote, e, &stats)
		case e.info.Mode().IsRegular():
			err = s.syncFile(remote, e, &stats)
		default:
			logging.Debugf("skipping special file %s", e.rel)
		}
		if err != nil {
			return stats, err
		}
	}

	fmt.Fprintf(s.out, "\ntransferred %d, deleted %d, unchanged %d\n", stats.Transferred, stats.Deleted, stats.Unchanged)
	return stats, nil
}

// scanLocal lists src depth first in lexical order, pruning excluded
// directories.
func scanLocal(src string, m *exclude.Matcher) ([]localEntry, error) {
	var entries []localEntry
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if m != nil && m.Excluded(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, localEntry{rel: rel, abs: p, info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", src, err)
	}
	return entries, nil
}

func (s *Syncer) deleteExtraneous(ctx context.Context, root, rel string, keep map[string]fs.FileMode, m *exclude.Matcher, stats *SyncStats) error {
	infos, err := s.fs.ReadDir(path.Join(root, rel))
	if err != nil {
		return fmt.Errorf("failed to list %s on remote: %w", path.Join(root, rel), err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		childRel := path.Join(rel, info.Name())
		if m != nil && m.Excluded(childRel, info.IsDir()) {
			continue
		}
		mode, ok := keep[childRel]
		if ok && mode == info.Mode().Type() {
			if info.IsDir() {
				if err := s.deleteExtraneous(ctx, root, childRel, keep, m, stats); err != nil {
					return err
				}
			}
			continue
		}
		// Missing locally, or changed type: the apply pass recreates it.
		if err := s.removeAll(path.Join(root, childRel), info); err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(s.out, "deleting %s\n", displayName(childRel, info.IsDir()))
			stats.Deleted++
		}
	}
	return nil
}

func (s *Syncer) removeAll(p string, info os.FileInfo) error {
	if !info.IsDir() {
		if err := s.fs.Remove(p); err != nil {
			return fmt.Errorf("failed to remove %s on remote: %w", p, err)
		}
		return nil
	}
	children, err := s.fs.ReadDir(p)
	if err != nil {
		return fmt.Errorf("failed to list %s on remote: %w", p, err)
	}
	for _, c := range children {
		if err := s.removeAll(path.Join(p, c.Name()), c); err != nil {
			return err
		}
	}
	if err := s.fs.RemoveDirectory(p); err != nil {
		return fmt.Errorf("failed to remove directory %s on remote: %w", p, err)
	}
	return nil
}

func (s *Syncer) syncDir(remote string, e localEntry, stats *SyncStats) error {
	existing, err := s.fs.Lstat(remote)
	if err == nil && existing.IsDir() {
		if existing.Mode().Perm() != e.info.Mode().Perm() {
			if err := s.fs.Chmod(remote, e.info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to chmod %s: %w", remote, err)
			}
		}
		stats.Unchanged++
		return nil
	}
	if err := s.fs.MkdirAll(remote); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", remote, err)
	}
	if err := s.fs.Chmod(remote, e.info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", remote, err)
	}
	fmt.Fprintln(s.out, displayName(e.rel, true))
	stats.Transferred++
	return nil
}

func (s *Syncer) syncSymlink(remote string, e localEntry, stats *SyncStats) error {
	target, err := os.Readlink(e.abs)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", e.abs, err)
	}
	if _, err := s.fs.Lstat(remote); err == nil {
		if err := s.fs.Remove(remote); err != nil {
			return fmt.Errorf("failed to replace link %s: %w", remote, err)
		}
	}
	if err := s.fs.Symlink(target, remote); err != nil {
		return fmt.Errorf("failed to create link %s: %w", remote, err)
	}
	fmt.Fprintf(s.out, "%s -> %s\n", e.rel, target)
	stats.Transferred++
	return nil
}

// syncFile uploads e when the remote copy differs in size or mtime. The
// upload goes to a temporary name and is renamed into place.
func (s *Syncer) syncFile(remote string, e localEntry, stats *SyncStats) error {
	if existing, err := s.fs.Lstat(remote); err == nil && existing.Mode().IsRegular() &&
		existing.Size() == e.info.Size() && existing.ModTime().Unix() == e.info.ModTime().Unix() {
		if existing.Mode().Perm() != e.info.Mode().Perm() {
			if err := s.fs.Chmod(remote, e.info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to chmod %s: %w", remote, err)
			}
		}
		stats.Unchanged++
		return nil
	}

	src, err := os.Open(e.abs)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.abs, err)
	}
	defer src.Close()

	tmpPath := path.Join(path.Dir(remote), fmt.Sprintf(".%s.rdeploy.%d", path.Base(remote), time.Now().UnixNano()))
	f, err := s.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file on remote: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to upload %s: %w", e.rel, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to upload %s: %w", e.rel, err)
	}
	if err := s.fs.Chmod(tmpPath, e.info.Mode().Perm()); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temporary file: %w", err)
	}
	if err := s.fs.Chtimes(tmpPath, e.info.ModTime(), e.info.ModTime()); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to set times on %s: %w", e.rel, err)
	}
	if err := s.fs.PosixRename(tmpPath, remote); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", e.rel, err)
	}

	fmt.Fprintln(s.out, e.rel)
	stats.Transferred++
	return nil
}

func displayName(rel string, isDir bool) string {
	if isDir {
		return rel + "/"
	}
	return rel
}
