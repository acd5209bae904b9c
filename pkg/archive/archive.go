// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package archive writes update packages to .uhupkg archive files: an
// uncompressed tarball layer holding the metadata document and the
// package objects, content-addressed by sha256sum.
package archive

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	ociv1 "github.com/google/go-containerregistry/pkg/v1"

	"github.com/MichaelACosta/uhu/pkg/fsutil"
	"github.com/MichaelACosta/uhu/pkg/pack"
	"github.com/MichaelACosta/uhu/pkg/reproducible"
)

// Extension is the archive filename extension.
const Extension = ".uhupkg"

// MetadataEntry is the archive entry holding the metadata document.
const MetadataEntry = "metadata"

// ErrArchiveExists reports a destination file that is already there and
// holds something other than this package.
var ErrArchiveExists = errors.New("archive already exists")

// DefaultFilename names an archive after the package: the first 8 hex
// digits of the product UID and the version.
func DefaultFilename(pkg *pack.Package) string {
	product := pkg.Product
	if len(product) > 8 {
		product = product[:8]
	}
	return fmt.Sprintf("%s-%s%s", product, pkg.Version, Extension)
}

// Write archives the package to filename (DefaultFilename when empty)
// and returns the archive filename and the layer digest.
//
// When the destination already exists: if it holds the same entries
// (timestamps aside) it is left alone, otherwise Write fails with
// ErrArchiveExists unless force is set.
func Write(pkg *pack.Package, filename string, force bool) (string, string, error) {
	if filename == "" {
		filename = DefaultFilename(pkg)
	}

	layer, err := layerFromPackage(pkg)
	if err != nil {
		return "", "", err
	}

	if _, err := os.Stat(filename); err == nil {
		existing, err := fsutil.OpenLayer(filename)
		if err == nil {
			if equal, err := fsutil.LayersEqualExceptTimestamps(existing, layer); err == nil && equal {
				digest, err := existing.Digest()
				if err != nil {
					return "", "", err
				}
				return filename, digest.String(), nil
			}
		}
		if !force {
			return "", "", fmt.Errorf("%w: %s", ErrArchiveExists, filename)
		}
	}

	digest, err := layer.Digest()
	if err != nil {
		return "", "", err
	}
	if err := writeLayerFile(layer, filename); err != nil {
		return "", "", err
	}
	return filename, digest.String(), nil
}

func layerFromPackage(pkg *pack.Package) (ociv1.Layer, error) {
	metadata, err := pkg.Metadata()
	if err != nil {
		return nil, err
	}
	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	refs := []fsutil.FileReference{
		&fsutil.InMemFileReference{
			FullPath: MetadataEntry,
			Content:  metadataBytes,
			MTime:    reproducible.Now(),
		},
	}
	seen := map[string]bool{}
	for _, obj := range pkg.Objects() {
		sha256sum, _, err := obj.Sha256sum()
		if err != nil {
			return nil, err
		}
		// Objects sharing content share one archive entry.
		if seen[sha256sum] {
			continue
		}
		seen[sha256sum] = true
		ref, err := fsutil.NewDiskFileReference("objects/"+sha256sum, obj.Filename())
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return fsutil.LayerFromFileReferences(refs, reproducible.Now())
}

func writeLayerFile(l ociv1.Layer, filename string) (err error) {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if _err := file.Close(); _err != nil && err == nil {
			err = _err
		}
	}()
	return fsutil.WriteLayer(l, file)
}

// ReadMetadata pulls the metadata document back out of an archive.
func ReadMetadata(filename string) (map[string]interface{}, error) {
	l, err := fsutil.OpenLayer(filename)
	if err != nil {
		return nil, err
	}
	reader, err := l.Uncompressed()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	tarReader := tar.NewReader(reader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Name != MetadataEntry {
			continue
		}
		var metadata map[string]interface{}
		if err := json.NewDecoder(tarReader).Decode(&metadata); err != nil {
			return nil, fmt.Errorf("%s: bad metadata entry: %w", filename, err)
		}
		return metadata, nil
	}
	return nil, fmt.Errorf("%s: no %s entry", filename, MetadataEntry)
}
