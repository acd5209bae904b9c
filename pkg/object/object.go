// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package object models the files that make up an update package, along
// with the options telling the target how to install them.
package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/MichaelACosta/uhu/pkg/compressed"
	"github.com/MichaelACosta/uhu/pkg/installcondition"
)

// ErrInvalidObject reports an object that cannot be assembled from its
// options.
var ErrInvalidObject = errors.New("invalid object")

// Object is one file of an update package plus its installation options.
type Object struct {
	mode    *Mode
	options map[string]interface{}
}

// New validates options and assembles an Object.  Mode defaults are
// applied, unknown options and missing required options are errors.
func New(options map[string]interface{}) (*Object, error) {
	filename, _ := options["filename"].(string)
	if filename == "" {
		return nil, fmt.Errorf("%w: missing filename", ErrInvalidObject)
	}
	modeName, _ := options["mode"].(string)
	mode, err := ModeByName(modeName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidObject, err)
	}

	allowed := mode.allowedOptions()
	normalized := map[string]interface{}{
		"filename": filename,
		"mode":     mode.Name,
	}
	for key, value := range options {
		if !allowed.Has(key) {
			return nil, fmt.Errorf("%w: mode %s does not take the %q option",
				ErrInvalidObject, mode.Name, key)
		}
		if value != nil {
			normalized[key] = value
		}
	}

	for _, opt := range mode.Options {
		if _, ok := normalized[opt.Key]; !ok {
			if opt.Required {
				return nil, fmt.Errorf("%w: mode %s requires the %q option",
					ErrInvalidObject, mode.Name, opt.Key)
			}
			if opt.Default != nil {
				normalized[opt.Key] = opt.Default
			}
			continue
		}
		if len(opt.Choices) > 0 {
			value, _ := normalized[opt.Key].(string)
			if !contains(opt.Choices, value) {
				return nil, fmt.Errorf("%w: %q is not a valid %q (choose from %s)",
					ErrInvalidObject, value, opt.Key, strings.Join(opt.Choices, ", "))
			}
		}
	}

	if mode.SupportsInstallCondition {
		if _, ok := normalized[installcondition.OptCondition]; !ok {
			normalized[installcondition.OptCondition] = installcondition.Always
		}
	}

	return &Object{mode: mode, options: normalized}, nil
}

func contains(haystack []string, needle string) bool {
	for _, straw := range haystack {
		if straw == needle {
			return true
		}
	}
	return false
}

// Filename returns the local filename of the object payload.
func (obj *Object) Filename() string {
	filename, _ := obj.options["filename"].(string)
	return filename
}

// Mode returns the installation mode name.
func (obj *Object) Mode() string {
	return obj.mode.Name
}

// Get returns the value of an option, or nil when unset.
func (obj *Object) Get(key string) interface{} {
	return obj.options[key]
}

// ToTemplate returns the object as it is stored in the local package
// file: all options, no payload digest.
func (obj *Object) ToTemplate() map[string]interface{} {
	template := make(map[string]interface{}, len(obj.options))
	for key, value := range obj.options {
		template[key] = value
	}
	return template
}

// Sha256sum reads the payload and returns its hex digest and size.
func (obj *Object) Sha256sum() (string, int64, error) {
	file, err := os.Open(obj.Filename())
	if err != nil {
		return "", -1, fmt.Errorf("%w: %v", ErrInvalidObject, err)
	}
	defer func() {
		_ = file.Close()
	}()
	digest := sha256.New()
	size, err := io.Copy(digest, file)
	if err != nil {
		return "", -1, err
	}
	return hex.EncodeToString(digest.Sum(nil)), size, nil
}

// ToMetadata returns the object as the server and the target see it:
// installation options plus payload digest and size, install conditions
// normalized to install-if-different.
func (obj *Object) ToMetadata() (map[string]interface{}, error) {
	sha256sum, size, err := obj.Sha256sum()
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"filename":  obj.Filename(),
		"mode":      obj.mode.Name,
		"sha256sum": sha256sum,
		"size":      size,
	}
	for key, value := range obj.options {
		if key == "filename" || key == "mode" || strings.HasPrefix(key, installcondition.OptCondition) {
			continue
		}
		metadata[key] = value
	}

	if obj.mode.SupportsInstallCondition {
		condition, err := installcondition.ToMetadata(obj.options, obj.Filename())
		if err != nil {
			return nil, err
		}
		for key, value := range condition {
			metadata[key] = value
		}
	}

	if obj.mode.SupportsCompression {
		uncompressed, err := compressed.UncompressedSize(obj.Filename())
		switch {
		case err == nil:
			metadata["compressed"] = true
			metadata["required-uncompressed-size"] = uncompressed
		case errors.Is(err, compressed.ErrNotCompressed):
			// plain payload
		default:
			return nil, err
		}
	}

	return metadata, nil
}

// String renders the object for `uhu package show`.
func (obj *Object) String() string {
	var ret strings.Builder
	fmt.Fprintf(&ret, "%s [mode: %s]\n", obj.Filename(), obj.mode.Name)

	if obj.mode.SupportsInstallCondition {
		condition, _ := obj.options[installcondition.OptCondition].(string)
		fmt.Fprintf(&ret, "    Install condition: %s\n", condition)
		if patternType, ok := obj.options[installcondition.OptPatternType].(string); ok {
			fmt.Fprintf(&ret, "    Install condition pattern: %s\n", patternType)
		}
	}

	keys := make([]string, 0, len(obj.options))
	for key := range obj.options {
		if key == "filename" || key == "mode" || strings.HasPrefix(key, installcondition.OptCondition) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&ret, "    %s: %v\n", key, obj.options[key])
	}
	return strings.TrimRight(ret.String(), "\n")
}
