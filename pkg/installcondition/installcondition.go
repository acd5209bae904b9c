// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package installcondition implements the install-condition object
// options: deciding whether the target should install an object at all,
// and probing version strings out of firmware images to do so.
package installcondition

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Condition values for the "install-condition" option.
const (
	Always          = "always"
	ContentDiverges = "content-diverges"
	VersionDiverges = "version-diverges"
)

// Pattern types for the "install-condition-pattern-type" option.
const (
	PatternLinuxKernel = "linux-kernel"
	PatternUBoot       = "u-boot"
	PatternRegexp      = "regexp"
)

// Option keys consumed by this package.
const (
	OptCondition   = "install-condition"
	OptPatternType = "install-condition-pattern-type"
	OptPattern     = "install-condition-pattern"
	OptSeek        = "install-condition-seek"
	OptBufferSize  = "install-condition-buffer-size"
	OptVersion     = "install-condition-version"
)

// KnownPatterns are the pattern types with built-in version probes.
var KnownPatterns = sets.NewString(PatternLinuxKernel, PatternUBoot)

// Options returns the option keys managed by this package, in display
// order.
func Options() []string {
	return []string{
		OptCondition, OptPatternType, OptPattern, OptSeek, OptBufferSize, OptVersion,
	}
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func optInt64(options map[string]interface{}, key string, fallback int64) int64 {
	if raw, ok := options[key]; ok && raw != nil {
		if n, ok := asInt64(raw); ok {
			return n
		}
	}
	return fallback
}

// ToMetadata translates the install-condition options into the
// install-if-different metadata fragment, probing filename for the
// version when the condition calls for one.
func ToMetadata(options map[string]interface{}, filename string) (map[string]interface{}, error) {
	condition, _ := options[OptCondition].(string)
	switch condition {
	case Always:
		return map[string]interface{}{}, nil
	case ContentDiverges:
		return map[string]interface{}{"install-if-different": "sha256sum"}, nil
	case VersionDiverges:
		// handled below
	default:
		return nil, fmt.Errorf("invalid install condition %q", options[OptCondition])
	}

	patternType, _ := options[OptPatternType].(string)
	var pattern interface{}
	var version string
	switch {
	case KnownPatterns.Has(patternType):
		pattern = patternType
		probed, err := probeKnownVersion(patternType, filename)
		if err != nil {
			return nil, err
		}
		version = probed
	case patternType == PatternRegexp:
		expr, _ := options[OptPattern].(string)
		seek := optInt64(options, OptSeek, 0)
		bufferSize := optInt64(options, OptBufferSize, -1)
		pattern = map[string]interface{}{
			"regexp":      expr,
			"seek":        seek,
			"buffer-size": bufferSize,
		}
		probed, err := probeCustomVersion(filename, expr, seek, bufferSize)
		if err != nil {
			return nil, err
		}
		version = probed
	default:
		return nil, fmt.Errorf("invalid install condition pattern type %q", options[OptPatternType])
	}

	if explicit, ok := options[OptVersion].(string); ok && explicit != "" {
		version = explicit
	}
	return map[string]interface{}{
		"install-if-different": map[string]interface{}{
			"version": version,
			"pattern": pattern,
		},
	}, nil
}

func probeKnownVersion(patternType, filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()
	switch patternType {
	case PatternLinuxKernel:
		return KernelVersion(file)
	case PatternUBoot:
		return UBootVersion(file)
	}
	return "", fmt.Errorf("invalid install condition pattern type %q", patternType)
}

func probeCustomVersion(filename, expr string, seek, bufferSize int64) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()
	return ObjectVersion(file, expr, seek, bufferSize)
}

// ObjectVersion extracts a version from r by matching expr against a
// window of bufferSize bytes starting at seek.  A bufferSize < 0 means
// "until EOF".
func ObjectVersion(r io.ReadSeeker, expr string, seek, bufferSize int64) (string, error) {
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("invalid install condition pattern %q: %w", expr, err)
	}
	if _, err := r.Seek(seek, io.SeekStart); err != nil {
		return "", err
	}
	var reader io.Reader = r
	if bufferSize >= 0 {
		reader = io.LimitReader(r, bufferSize)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	match := pattern.Find(content)
	if match == nil {
		return "", fmt.Errorf("could not find version using pattern %q", expr)
	}
	return string(match), nil
}

// Normalize rewrites an install-if-different metadata fragment (as found
// inside archived metadata) back into install-condition options.  A
// metadata document without install-if-different normalizes to an empty
// option set.
func Normalize(metadata map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := metadata["install-if-different"]
	if !ok {
		return map[string]interface{}{}, nil
	}
	switch iid := raw.(type) {
	case string:
		if iid != "sha256sum" {
			return nil, fmt.Errorf("invalid install-if-different value %q", iid)
		}
		return map[string]interface{}{OptCondition: ContentDiverges}, nil
	case map[string]interface{}:
		version, ok := iid["version"].(string)
		if !ok {
			return nil, fmt.Errorf("install-if-different is missing a version")
		}
		options := map[string]interface{}{
			OptCondition: VersionDiverges,
			OptVersion:   version,
		}
		switch pattern := iid["pattern"].(type) {
		case string:
			if !KnownPatterns.Has(pattern) {
				return nil, fmt.Errorf("invalid install-if-different pattern %q", pattern)
			}
			options[OptPatternType] = pattern
		case map[string]interface{}:
			expr, ok := pattern["regexp"].(string)
			if !ok {
				return nil, fmt.Errorf("install-if-different pattern is missing a regexp")
			}
			options[OptPatternType] = PatternRegexp
			options[OptPattern] = expr
			options[OptSeek] = optInt64(pattern, "seek", 0)
			options[OptBufferSize] = optInt64(pattern, "buffer-size", -1)
		default:
			return nil, fmt.Errorf("invalid install-if-different pattern type %T", iid["pattern"])
		}
		return options, nil
	default:
		return nil, fmt.Errorf("invalid install-if-different type %T", raw)
	}
}
