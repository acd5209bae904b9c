// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package compressed inspects gzip, xz and lzop payloads and reports the
// size that installing them will take on the target.
package compressed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// ErrNotCompressed reports that a payload is not in any supported
// compression container.
var ErrNotCompressed = errors.New("not a supported compressed file")

// Format is a supported compression container.
type Format string

const (
	FormatGzip Format = "gzip"
	FormatXZ   Format = "xz"
	FormatLzop Format = "lzop"
)

var magics = []struct {
	format Format
	magic  []byte
}{
	{FormatGzip, []byte{0x1f, 0x8b}},
	{FormatXZ, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{FormatLzop, []byte{0x89, 'L', 'Z', 'O', 0x00, 0x0d, 0x0a, 0x1a, 0x0a}},
}

// DetectFormat sniffs the container format from the file magic.  It
// returns ErrNotCompressed for anything it does not recognize.
func DetectFormat(r io.ReaderAt) (Format, error) {
	var header [9]byte
	n, err := r.ReadAt(header[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	for _, candidate := range magics {
		if n >= len(candidate.magic) && string(header[:len(candidate.magic)]) == string(candidate.magic) {
			return candidate.format, nil
		}
	}
	return "", ErrNotCompressed
}

// UncompressedSize returns the size of filename's content once
// uncompressed.  It returns ErrNotCompressed for plain files.
func UncompressedSize(filename string) (int64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return -1, err
	}
	defer func() {
		_ = file.Close()
	}()

	format, err := DetectFormat(file)
	if err != nil {
		return -1, err
	}
	switch format {
	case FormatGzip:
		return GzipUncompressedSize(file)
	case FormatXZ:
		return XZUncompressedSize(file)
	case FormatLzop:
		return LzopUncompressedSize(file)
	}
	return -1, ErrNotCompressed
}

// GzipUncompressedSize reads the ISIZE field from the gzip member
// trailer.  ISIZE is mod 2^32, which is also all that the target's
// installer checks.
func GzipUncompressedSize(file *os.File) (int64, error) {
	info, err := file.Stat()
	if err != nil {
		return -1, err
	}
	if info.Size() < 4 {
		return -1, fmt.Errorf("%s: truncated gzip trailer", file.Name())
	}
	var trailer [4]byte
	if _, err := file.ReadAt(trailer[:], info.Size()-4); err != nil {
		return -1, err
	}
	return int64(binary.LittleEndian.Uint32(trailer[:])), nil
}

// XZUncompressedSize streams through the xz container and counts the
// decoded bytes.  The xz index would allow seeking straight to the
// answer, but counting keeps us honest about corrupt streams.
func XZUncompressedSize(file *os.File) (int64, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return -1, err
	}
	reader, err := xz.NewReader(file)
	if err != nil {
		return -1, fmt.Errorf("%s: %w", file.Name(), err)
	}
	size, err := io.Copy(io.Discard, reader)
	if err != nil {
		return -1, fmt.Errorf("%s: %w", file.Name(), err)
	}
	return size, nil
}

// lzopHeaderFlags that grow the lzop file header or the per-block
// headers.  See lzop(1) source, lzop_file_header_t.
const (
	lzopAdler32D = 0x0000_0001
	lzopAdler32C = 0x0000_0002
	lzopCRC32D   = 0x0000_0100
	lzopCRC32C   = 0x0000_0200
	lzopFilter   = 0x0000_0800
)

// LzopUncompressedSize walks the lzop block headers, summing the
// uncompressed length of each block without decoding any of them.
func LzopUncompressedSize(file *os.File) (int64, error) {
	// Skip the fixed magic and the version/method fields up to the flags.
	//
	//   magic[9] version[2] libVersion[2] versionNeeded[2] method[1] level[1]
	if _, err := file.Seek(9+2+2+2+1+1, io.SeekStart); err != nil {
		return -1, err
	}
	var flags uint32
	if err := binary.Read(file, binary.BigEndian, &flags); err != nil {
		return -1, fmt.Errorf("%s: %w", file.Name(), err)
	}
	if flags&lzopFilter != 0 {
		if _, err := file.Seek(4, io.SeekCurrent); err != nil {
			return -1, err
		}
	}
	// mode[4] mtimeLow[4] mtimeHigh[4] nameLen[1]+name checksum[4]
	if _, err := file.Seek(4+4+4, io.SeekCurrent); err != nil {
		return -1, err
	}
	var nameLen uint8
	if err := binary.Read(file, binary.BigEndian, &nameLen); err != nil {
		return -1, fmt.Errorf("%s: %w", file.Name(), err)
	}
	if _, err := file.Seek(int64(nameLen)+4, io.SeekCurrent); err != nil {
		return -1, err
	}

	var total int64
	for {
		var uncompressedLen uint32
		if err := binary.Read(file, binary.BigEndian, &uncompressedLen); err != nil {
			return -1, fmt.Errorf("%s: %w", file.Name(), err)
		}
		if uncompressedLen == 0 {
			// End-of-stream marker.
			return total, nil
		}
		var compressedLen uint32
		if err := binary.Read(file, binary.BigEndian, &compressedLen); err != nil {
			return -1, fmt.Errorf("%s: %w", file.Name(), err)
		}
		total += int64(uncompressedLen)

		skip := int64(0)
		if flags&(lzopAdler32D|lzopCRC32D) != 0 {
			skip += 4
		}
		// The compressed checksum is only stored when the block is
		// actually compressed.
		if flags&(lzopAdler32C|lzopCRC32C) != 0 && compressedLen < uncompressedLen {
			skip += 4
		}
		if _, err := file.Seek(skip+int64(compressedLen), io.SeekCurrent); err != nil {
			return -1, err
		}
	}
}
