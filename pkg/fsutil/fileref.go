// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package fsutil builds and inspects the tarball layers that back
// .uhupkg archives.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"time"
)

type FileReference interface {
	fs.FileInfo

	// FullName should follow io/fs rules: it should use forward-slashes, and it should be an
	// absolute path but without the leading "/".
	FullName() string

	Open() (io.ReadCloser, error)
}

// InMemFileReference serves a byte slice as an archive entry.
type InMemFileReference struct {
	FullPath string
	Content  []byte
	MTime    time.Time
}

func (fr *InMemFileReference) FullName() string   { return fr.FullPath }
func (fr *InMemFileReference) Name() string       { return path.Base(fr.FullPath) }
func (fr *InMemFileReference) Size() int64        { return int64(len(fr.Content)) }
func (fr *InMemFileReference) Mode() fs.FileMode  { return 0o644 }
func (fr *InMemFileReference) ModTime() time.Time { return fr.MTime }
func (fr *InMemFileReference) IsDir() bool        { return false }
func (fr *InMemFileReference) Sys() interface{}   { return nil }
func (fr *InMemFileReference) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(fr.Content)), nil
}

// DiskFileReference serves a file on disk under a (usually different)
// name inside the archive.
type DiskFileReference struct {
	fs.FileInfo
	FullPath string
	DiskPath string
}

func NewDiskFileReference(fullName, filename string) (*DiskFileReference, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	return &DiskFileReference{
		FileInfo: info,
		FullPath: fullName,
		DiskPath: filename,
	}, nil
}

func (fr *DiskFileReference) FullName() string { return fr.FullPath }
func (fr *DiskFileReference) Name() string     { return path.Base(fr.FullPath) }
func (fr *DiskFileReference) Open() (io.ReadCloser, error) {
	return os.Open(fr.DiskPath)
}

var (
	_ FileReference = (*InMemFileReference)(nil)
	_ FileReference = (*DiskFileReference)(nil)
)
