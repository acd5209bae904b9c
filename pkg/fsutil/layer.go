// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package fsutil

import (
	"archive/tar"
	"bytes"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	ociv1 "github.com/google/go-containerregistry/pkg/v1"
	ociv1tarball "github.com/google/go-containerregistry/pkg/v1/tarball"
)

// LayerFromFileReferences writes the references into an uncompressed
// tarball layer.  Entries are sorted by name and timestamps newer than
// clampTime are clamped to it, so that the same inputs always produce
// the same layer.
func LayerFromFileReferences(
	refs []FileReference,
	clampTime time.Time,
	opts ...ociv1tarball.LayerOption,
) (ociv1.Layer, error) {
	sort.Slice(refs, func(i, j int) bool {
		// Do a part-wise comparison, rather than a simple string compare on .FullName(),
		// because "-" < "/" < EOF.
		iParts := strings.Split(refs[i].FullName(), "/")
		jParts := strings.Split(refs[j].FullName(), "/")
		for idx := 0; idx < len(iParts) || idx < len(jParts); idx++ {
			var iPart, jPart string
			if idx < len(iParts) {
				iPart = iParts[idx]
			}
			if idx < len(jParts) {
				jPart = jParts[idx]
			}
			if iPart != jPart {
				return iPart < jPart
			}
		}
		return false
	})

	var byteWriter bytes.Buffer
	tarWriter := tar.NewWriter(&byteWriter)

	for _, ref := range refs {
		header, err := tar.FileInfoHeader(ref, "")
		if err != nil {
			return nil, err
		}
		header.Name = ref.FullName()
		if header.ModTime.After(clampTime) {
			header.ModTime = clampTime
		}
		if header.AccessTime.After(clampTime) {
			header.AccessTime = clampTime
		}
		if header.ChangeTime.After(clampTime) {
			header.ChangeTime = clampTime
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return nil, err
		}
		if header.Typeflag == tar.TypeReg {
			reader, err := ref.Open()
			if err != nil {
				return nil, err
			}
			if _, err := io.Copy(tarWriter, reader); err != nil {
				_ = reader.Close()
				return nil, err
			}
			if err := reader.Close(); err != nil {
				return nil, err
			}
		}
	}

	if err := tarWriter.Close(); err != nil {
		return nil, err
	}

	byteSlice := byteWriter.Bytes()
	return ociv1tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(byteSlice)), nil
	}, opts...)
}

// WriteLayer writes the layer's uncompressed bytes to dst.
func WriteLayer(layer ociv1.Layer, dst io.Writer) (err error) {
	layerReader, err := layer.Uncompressed()
	if err != nil {
		return err
	}
	defer func() {
		if _err := layerReader.Close(); _err != nil && err == nil {
			err = _err
		}
	}()
	if _, err := io.Copy(dst, layerReader); err != nil {
		return err
	}
	return nil
}

func PathOpener(filename string) ociv1tarball.Opener {
	fi, err := os.Stat(filename)
	if err != nil {
		return func() (io.ReadCloser, error) {
			return nil, err
		}
	}
	if fi.Mode().IsRegular() {
		// Open the file for each access.  This does not work on pipes.
		return func() (io.ReadCloser, error) {
			file, err := os.Open(filename)
			if err != nil {
				return nil, err
			}
			return file, nil
		}
	} else {
		// Read the file in to memory once, and then work on that.  This avoids extra IO,
		// but uses more memory.
		bs, err := os.ReadFile(filename)
		return func() (io.ReadCloser, error) {
			if err != nil {
				return nil, err
			}
			return io.NopCloser(bytes.NewReader(bs)), nil
		}
	}
}

// OpenLayer opens an archive file on disk as a tarball layer.
func OpenLayer(filename string) (ociv1.Layer, error) {
	layer, err := ociv1tarball.LayerFromOpener(PathOpener(filename))
	if err != nil {
		return nil, &fs.PathError{
			Op:   "open archive",
			Path: filename,
			Err:  err,
		}
	}
	return layer, nil
}
