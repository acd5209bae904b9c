// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package pack models the update package being assembled: the local
// package file, its objects and the metadata document sent to the
// server.
package pack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/MichaelACosta/uhu/pkg/object"
)

// ErrInvalidPackageFile reports a local package file that cannot be
// loaded.
var ErrInvalidPackageFile = errors.New("invalid package file")

// ErrObjectNotFound reports a remove of an object that is not in the
// package.
var ErrObjectNotFound = errors.New("object not found in package")

// Package is an update package under construction.
type Package struct {
	Product           string
	Version           string
	SupportedHardware []string

	objects []*object.Object
}

// New starts an empty package for a product.
func New(product string) *Package {
	return &Package{Product: product}
}

type packageFile struct {
	Product           string                   `json:"product"`
	Version           string                   `json:"version,omitempty"`
	SupportedHardware []string                 `json:"supported-hardware,omitempty"`
	Objects           []map[string]interface{} `json:"objects,omitempty"`
}

// Load reads a local package file.  Both a missing file and malformed
// JSON yield ErrInvalidPackageFile naming the file.
func Load(filename string) (*Package, error) {
	jsonBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidPackageFile, filename)
	}
	var file packageFile
	if err := json.Unmarshal(jsonBytes, &file); err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid JSON file", ErrInvalidPackageFile, filename)
	}

	pkg := &Package{
		Product:           file.Product,
		Version:           file.Version,
		SupportedHardware: file.SupportedHardware,
	}
	for _, options := range file.Objects {
		if err := pkg.AddObject(options); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPackageFile, filename, err)
		}
	}
	return pkg, nil
}

// Save writes the package back to a local package file.
func (pkg *Package) Save(filename string) error {
	file := packageFile{
		Product:           pkg.Product,
		Version:           pkg.Version,
		SupportedHardware: pkg.SupportedHardware,
		Objects:           make([]map[string]interface{}, 0, len(pkg.objects)),
	}
	for _, obj := range pkg.objects {
		file.Objects = append(file.Objects, obj.ToTemplate())
	}
	jsonBytes, err := json.MarshalIndent(file, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(jsonBytes, '\n'), 0o644)
}

// AddObject validates options and appends the object.
func (pkg *Package) AddObject(options map[string]interface{}) error {
	obj, err := object.New(options)
	if err != nil {
		return err
	}
	pkg.objects = append(pkg.objects, obj)
	return nil
}

// RemoveObject removes the first object whose filename matches.
func (pkg *Package) RemoveObject(filename string) error {
	for i, obj := range pkg.objects {
		if obj.Filename() == filename {
			pkg.objects = append(pkg.objects[:i], pkg.objects[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrObjectNotFound, filename)
}

// Objects returns the package objects in insertion order.
func (pkg *Package) Objects() []*object.Object {
	return pkg.objects
}

// Metadata assembles and validates the metadata document: product,
// version, supported hardware and one installation set of object
// metadata.
func (pkg *Package) Metadata() (map[string]interface{}, error) {
	installSet := make([]interface{}, 0, len(pkg.objects))
	for _, obj := range pkg.objects {
		metadata, err := obj.ToMetadata()
		if err != nil {
			return nil, err
		}
		installSet = append(installSet, metadata)
	}

	var hardware interface{} = "any"
	if len(pkg.SupportedHardware) > 0 {
		hardware = pkg.SupportedHardware
	}
	metadata := map[string]interface{}{
		"product":            pkg.Product,
		"version":            pkg.Version,
		"supported-hardware": hardware,
		"objects":            []interface{}{installSet},
	}
	if err := ValidateMetadata(metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

// String renders the package for `uhu package show`.
func (pkg *Package) String() string {
	ret := fmt.Sprintf("Product: %s\nVersion: %s\n", orNone(pkg.Product), orNone(pkg.Version))
	if len(pkg.objects) == 0 {
		return ret + "Objects: none"
	}
	ret += "Objects:"
	for _, obj := range pkg.objects {
		ret += "\n  " + obj.String()
	}
	return ret
}

func orNone(str string) string {
	if str == "" {
		return "(none)"
	}
	return str
}
