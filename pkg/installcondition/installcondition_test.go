// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package installcondition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelACosta/uhu/pkg/installcondition"
)

func writeFixture(t *testing.T, content []byte) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "object.bin")
	require.NoError(t, os.WriteFile(filename, content, 0o600))
	return filename
}

func TestToMetadataAlways(t *testing.T) {
	t.Parallel()
	metadata, err := installcondition.ToMetadata(map[string]interface{}{
		installcondition.OptCondition: installcondition.Always,
	}, writeFixture(t, []byte("spam")))
	require.NoError(t, err)
	assert.Empty(t, metadata)
}

func TestToMetadataContentDiverges(t *testing.T) {
	t.Parallel()
	metadata, err := installcondition.ToMetadata(map[string]interface{}{
		installcondition.OptCondition: installcondition.ContentDiverges,
	}, writeFixture(t, []byte("spam")))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"install-if-different": "sha256sum",
	}, metadata)
}

func TestToMetadataVersionDivergesWithKnownPattern(t *testing.T) {
	t.Parallel()
	filename := writeFixture(t, []byte("\x01U-Boot 13.08.1988 (13/08/1988)\x02"))
	metadata, err := installcondition.ToMetadata(map[string]interface{}{
		installcondition.OptCondition:   installcondition.VersionDiverges,
		installcondition.OptPatternType: installcondition.PatternUBoot,
	}, filename)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"install-if-different": map[string]interface{}{
			"version": "13.08.1988",
			"pattern": "u-boot",
		},
	}, metadata)
}

func TestToMetadataVersionDivergesWithCustomPattern(t *testing.T) {
	t.Parallel()
	filename := writeFixture(t, []byte("___1.0___"))
	metadata, err := installcondition.ToMetadata(map[string]interface{}{
		installcondition.OptCondition:   installcondition.VersionDiverges,
		installcondition.OptPatternType: installcondition.PatternRegexp,
		installcondition.OptPattern:     `\d+\.\d+`,
		installcondition.OptSeek:        3,
		installcondition.OptBufferSize:  5,
	}, filename)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"install-if-different": map[string]interface{}{
			"version": "1.0",
			"pattern": map[string]interface{}{
				"regexp":      `\d+\.\d+`,
				"seek":        int64(3),
				"buffer-size": int64(5),
			},
		},
	}, metadata)
}

func TestToMetadataErrors(t *testing.T) {
	t.Parallel()
	filename := writeFixture(t, []byte("spam"))

	for _, condition := range []interface{}{nil, 1, "unknown", "grub"} {
		_, err := installcondition.ToMetadata(map[string]interface{}{
			installcondition.OptCondition: condition,
		}, filename)
		assert.Error(t, err, "condition %v", condition)
	}

	for _, pattern := range []interface{}{nil, 1, "unknown", "grub"} {
		_, err := installcondition.ToMetadata(map[string]interface{}{
			installcondition.OptCondition:   installcondition.VersionDiverges,
			installcondition.OptPatternType: pattern,
		}, filename)
		assert.Error(t, err, "pattern %v", pattern)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		Metadata map[string]interface{}
		Expected map[string]interface{}
	}{
		"absent": {
			Metadata: map[string]interface{}{},
			Expected: map[string]interface{}{},
		},
		"sha256sum": {
			Metadata: map[string]interface{}{"install-if-different": "sha256sum"},
			Expected: map[string]interface{}{
				installcondition.OptCondition: installcondition.ContentDiverges,
			},
		},
		"known-pattern": {
			Metadata: map[string]interface{}{
				"install-if-different": map[string]interface{}{
					"version": "2.0",
					"pattern": "linux-kernel",
				},
			},
			Expected: map[string]interface{}{
				installcondition.OptCondition:   installcondition.VersionDiverges,
				installcondition.OptVersion:     "2.0",
				installcondition.OptPatternType: "linux-kernel",
			},
		},
		"custom-pattern": {
			Metadata: map[string]interface{}{
				"install-if-different": map[string]interface{}{
					"version": "2.0",
					"pattern": map[string]interface{}{
						"regexp":      "spam",
						"seek":        float64(42),
						"buffer-size": float64(42),
					},
				},
			},
			Expected: map[string]interface{}{
				installcondition.OptCondition:   installcondition.VersionDiverges,
				installcondition.OptVersion:     "2.0",
				installcondition.OptPatternType: installcondition.PatternRegexp,
				installcondition.OptPattern:     "spam",
				installcondition.OptSeek:        int64(42),
				installcondition.OptBufferSize:  int64(42),
			},
		},
	}
	for name, tc := range testcases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			observed, err := installcondition.Normalize(tc.Metadata)
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, observed)
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	t.Parallel()
	testcases := map[string]map[string]interface{}{
		"not-object-or-string": {"install-if-different": 42},
		"missing-version":      {"install-if-different": map[string]interface{}{}},
		"unknown-pattern": {"install-if-different": map[string]interface{}{
			"version": "2.0",
			"pattern": "grub",
		}},
		"missing-regexp": {"install-if-different": map[string]interface{}{
			"version": "2.0",
			"pattern": map[string]interface{}{},
		}},
	}
	for name, metadata := range testcases {
		metadata := metadata
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := installcondition.Normalize(metadata)
			assert.Error(t, err)
		})
	}
}
