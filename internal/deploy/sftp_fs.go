// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"
)

// remoteFS is the subset of SFTP operations the syncer needs.
type remoteFS interface {
	MkdirAll(path string) error
	Lstat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.FileInfo, error)
	Create(path string) (io.WriteCloser, error)
	Chmod(path string, mode os.FileMode) error
	Chtimes(path string, atime, mtime time.Time) error
	PosixRename(oldpath, newpath string) error
	Symlink(oldname, newname string) error
	Remove(path string) error
	RemoveDirectory(path string) error
	Close() error
}

// sftpFS adapts *sftp.Client to remoteFS.
type sftpFS struct {
	c *sftp.Client
}

func (s sftpFS) MkdirAll(path string) error { return s.c.MkdirAll(path) }
func (s sftpFS) Lstat(path string) (os.FileInfo, error) { return s.c.Lstat(path) }
func (s sftpFS) ReadDir(path string) ([]os.FileInfo, error) { return s.c.ReadDir(path) }
func (s sftpFS) Chmod(path string, mode os.FileMode) error { return s.c.Chmod(path, mode) }
func (s sftpFS) PosixRename(oldpath, newpath string) error { return s.c.PosixRename(oldpath, newpath) }
func (s sftpFS) Symlink(oldname, newname string) error { return s.c.Symlink(oldname, newname) }
func (s sftpFS) Remove(path string) error { return s.c.Remove(path) }
func (s sftpFS) RemoveDirectory(path string) error { return s.c.RemoveDirectory(path) }
func (s sftpFS) Close() error { return s.c.Close() }
func (s sftpFS) Chtimes(path string, atime, mtime time.Time) error {
	return s.c.Chtimes(path, atime, mtime)
}

func (s sftpFS) Create(path string) (io.WriteCloser, error) {
	f, err := s.c.Create(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
