// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// memEntry is a node of memFS.
type memEntry struct {
	mode  fs.FileMode
	data  []byte
	mtime time.Time
	link  string
}

type memInfo struct {
	name string
	e    *memEntry
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return int64(len(i.e.data)) }
func (i memInfo) Mode() fs.FileMode  { return i.e.mode }
func (i memInfo) ModTime() time.Time { return i.e.mtime }
func (i memInfo) IsDir() bool        { return i.e.mode.IsDir() }
func (i memInfo) Sys() any           { return nil }

// memFS is an in-memory remoteFS keyed by clean absolute path.
type memFS struct {
	entries map[string]*memEntry
	closed  bool
	ops     []string
	failOn  map[string]error
}

func newMemFS() *memFS {
	return &memFS{
		entries: map[string]*memEntry{"/": {mode: fs.ModeDir | 0755}},
		failOn:  map[string]error{},
	}
}

func (m *memFS) record(op, p string) error {
	m.ops = append(m.ops, op+" "+p)
	return m.failOn[op]
}

func (m *memFS) addFile(p, content string, mtime time.Time) {
	_ = m.MkdirAll(path.Dir(p))
	m.entries[path.Clean(p)] = &memEntry{mode: 0644, data: []byte(content), mtime: mtime}
}

func (m *memFS) addDir(p string) { _ = m.MkdirAll(p) }

func (m *memFS) content(p string) (string, bool) {
	e, ok := m.entries[path.Clean(p)]
	if !ok || !e.mode.IsRegular() {
		return "", false
	}
	return string(e.data), true
}

func (m *memFS) MkdirAll(p string) error {
	if err := m.record("mkdirall", p); err != nil {
		return err
	}
	p = path.Clean(p)
	for cur := p; cur != "/" && cur != "."; cur = path.Dir(cur) {
		if e, ok := m.entries[cur]; ok {
			if !e.mode.IsDir() {
				return fmt.Errorf("%s: not a directory", cur)
			}
			continue
		}
		m.entries[cur] = &memEntry{mode: fs.ModeDir | 0755}
	}
	return nil
}

func (m *memFS) Lstat(p string) (os.FileInfo, error) {
	e, ok := m.entries[path.Clean(p)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return memInfo{name: path.Base(p), e: e}, nil
}

func (m *memFS) ReadDir(p string) ([]os.FileInfo, error) {
	p = path.Clean(p)
	if e, ok := m.entries[p]; !ok || !e.mode.IsDir() {
		return nil, os.ErrNotExist
	}
	var out []os.FileInfo
	for k, e := range m.entries {
		if k != p && path.Dir(k) == p {
			out = append(out, memInfo{name: path.Base(k), e: e})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() > out[j].Name() })
	return out, nil
}

type memWriter struct {
	bytes.Buffer
	fs *memFS
	p  string
}

func (w *memWriter) Close() error {
	w.fs.entries[w.p] = &memEntry{mode: 0644, data: w.Bytes(), mtime: time.Now()}
	return nil
}

func (m *memFS) Create(p string) (io.WriteCloser, error) {
	if err := m.record("create", p); err != nil {
		return nil, err
	}
	p = path.Clean(p)
	if _, ok := m.entries[path.Dir(p)]; !ok {
		return nil, os.ErrNotExist
	}
	return &memWriter{fs: m, p: p}, nil
}

func (m *memFS) Chmod(p string, mode os.FileMode) error {
	if err := m.record("chmod", p); err != nil {
		return err
	}
	e, ok := m.entries[path.Clean(p)]
	if !ok {
		return os.ErrNotExist
	}
	e.mode = e.mode.Type() | mode.Perm()
	return nil
}

func (m *memFS) Chtimes(p string, _, mtime time.Time) error {
	if err := m.record("chtimes", p); err != nil {
		return err
	}
	e, ok := m.entries[path.Clean(p)]
	if !ok {
		return os.ErrNotExist
	}
	e.mtime = mtime
	return nil
}

func (m *memFS) PosixRename(oldpath, newpath string) error {
	if err := m.record("rename", newpath); err != nil {
		return err
	}
	e, ok := m.entries[path.Clean(oldpath)]
	if !ok {
		return os.ErrNotExist
	}
	delete(m.entries, path.Clean(oldpath))
	m.entries[path.Clean(newpath)] = e
	return nil
}

func (m *memFS) Symlink(oldname, newname string) error {
	if err := m.record("symlink", newname); err != nil {
		return err
	}
	m.entries[path.Clean(newname)] = &memEntry{mode: fs.ModeSymlink | 0777, link: oldname}
	return nil
}

func (m *memFS) Remove(p string) error {
	if err := m.record("remove", p); err != nil {
		return err
	}
	p = path.Clean(p)
	e, ok := m.entries[p]
	if !ok {
		return os.ErrNotExist
	}
	if e.mode.IsDir() {
		return fmt.Errorf("%s: is a directory", p)
	}
	delete(m.entries, p)
	return nil
}

func (m *memFS) RemoveDirectory(p string) error {
	if err := m.record("rmdir", p); err != nil {
		return err
	}
	p = path.Clean(p)
	for k := range m.entries {
		if strings.HasPrefix(k, p+"/") {
			return fmt.Errorf("%s: directory not empty", p)
		}
	}
	delete(m.entries, p)
	return nil
}

func (m *memFS) Close() error {
	m.closed = true
	return nil
}
