// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package compressed_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/MichaelACosta/uhu/pkg/compressed"
)

var baseContent = []byte(strings.Repeat("updatehub base content\n", 64))

func writeGzipFixture(t *testing.T, content []byte) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "base.txt.gz")
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	_, err := writer.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0o600))
	return filename
}

func writeXZFixture(t *testing.T, content []byte) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "base.txt.xz")
	var buf bytes.Buffer
	writer, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = writer.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0o600))
	return filename
}

// writeLzopFixture hand-crafts a minimal lzop container with "stored"
// blocks (compressedLen == uncompressedLen means uncompressed data).
func writeLzopFixture(t *testing.T, content []byte) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "base.txt.lzo")

	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'L', 'Z', 'O', 0x00, 0x0d, 0x0a, 0x1a, 0x0a}) // magic
	buf.Write([]byte{0x10, 0x40})                                        // version
	buf.Write([]byte{0x20, 0xa0})                                        // libVersion
	buf.Write([]byte{0x09, 0x40})                                        // versionNeeded
	buf.WriteByte(1)                                                     // method
	buf.WriteByte(5)                                                     // level
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))                  // flags: no checksums
	_ = binary.Write(&buf, binary.BigEndian, uint32(0o644))              // mode
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))                  // mtimeLow
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))                  // mtimeHigh
	buf.WriteByte(0)                                                     // name length
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))                  // header checksum

	for offset := 0; offset < len(content); offset += 512 {
		end := offset + 512
		if end > len(content) {
			end = len(content)
		}
		block := content[offset:end]
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(block)))
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(block)))
		buf.Write(block)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint32(0)) // end of stream

	require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0o600))
	return filename
}

func TestUncompressedSizeGzip(t *testing.T) {
	t.Parallel()
	filename := writeGzipFixture(t, baseContent)
	size, err := compressed.UncompressedSize(filename)
	require.NoError(t, err)
	assert.Equal(t, int64(len(baseContent)), size)
}

func TestUncompressedSizeXZ(t *testing.T) {
	t.Parallel()
	filename := writeXZFixture(t, baseContent)
	size, err := compressed.UncompressedSize(filename)
	require.NoError(t, err)
	assert.Equal(t, int64(len(baseContent)), size)
}

func TestUncompressedSizeLzop(t *testing.T) {
	t.Parallel()
	filename := writeLzopFixture(t, baseContent)
	size, err := compressed.UncompressedSize(filename)
	require.NoError(t, err)
	assert.Equal(t, int64(len(baseContent)), size)
}

func TestUncompressedSizeRejectsPlainFiles(t *testing.T) {
	t.Parallel()
	filename := filepath.Join(t.TempDir(), "base.txt")
	require.NoError(t, os.WriteFile(filename, baseContent, 0o600))

	_, err := compressed.UncompressedSize(filename)
	assert.ErrorIs(t, err, compressed.ErrNotCompressed)
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		Content  []byte
		Expected compressed.Format
	}{
		"gzip": {[]byte{0x1f, 0x8b, 0x08, 0x00}, compressed.FormatGzip},
		"xz":   {[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00, 0x00}, compressed.FormatXZ},
		"lzop": {[]byte{0x89, 'L', 'Z', 'O', 0x00, 0x0d, 0x0a, 0x1a, 0x0a, 0x10}, compressed.FormatLzop},
	}
	for name, tc := range testcases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			format, err := compressed.DetectFormat(bytes.NewReader(tc.Content))
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, format)
		})
	}

	t.Run("plain", func(t *testing.T) {
		t.Parallel()
		_, err := compressed.DetectFormat(bytes.NewReader([]byte("plain text")))
		assert.ErrorIs(t, err, compressed.ErrNotCompressed)
	})
}
