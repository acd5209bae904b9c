// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package installcondition

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/klauspost/compress/gzip"
)

// Magic numbers for the supported Linux kernel image layouts.
const (
	armUImageMagic = 0x27051956 // big-endian word at offset 0
	armZImageMagic = 0x016f2818 // little-endian word at offset 36

	x86BootFlag   = 0xaa55 // little-endian word at offset 510
	x86HeaderSig  = "HdrS" // offset 0x202
	x86LoadedHigh = 0x01   // loadflags bit: protected-mode kernel loads high (bzImage)
)

var (
	kernelVersionRe  = regexp.MustCompile(`\d+\.\d+\.\d+[^\s\x00]*`)
	linuxBannerRe    = regexp.MustCompile(`Linux version ([^\s\x00]+)`)
	gzipMemberMarker = []byte{0x1f, 0x8b, 0x08}
)

func readAt(r io.ReadSeeker, offset int64, buf []byte) error {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(r, buf)
	return err
}

// IsARMuImage reports whether r starts with a U-Boot legacy uImage
// header.
func IsARMuImage(r io.ReadSeeker) (bool, error) {
	var word [4]byte
	if err := readAt(r, 0, word[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return binary.BigEndian.Uint32(word[:]) == armUImageMagic, nil
}

// IsARMzImage reports whether r carries the ARM zImage magic.
func IsARMzImage(r io.ReadSeeker) (bool, error) {
	var word [4]byte
	if err := readAt(r, 36, word[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return binary.LittleEndian.Uint32(word[:]) == armZImageMagic, nil
}

func isX86Image(r io.ReadSeeker) (bool, error) {
	var bootFlag [2]byte
	if err := readAt(r, 510, bootFlag[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	if binary.LittleEndian.Uint16(bootFlag[:]) != x86BootFlag {
		return false, nil
	}
	sig := make([]byte, len(x86HeaderSig))
	if err := readAt(r, 0x202, sig); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return string(sig) == x86HeaderSig, nil
}

func x86Loadflags(r io.ReadSeeker) (byte, error) {
	var loadflags [1]byte
	if err := readAt(r, 0x211, loadflags[:]); err != nil {
		return 0, err
	}
	return loadflags[0], nil
}

// IsX86bzImage reports whether r is an x86 boot image whose
// protected-mode part loads high.
func IsX86bzImage(r io.ReadSeeker) (bool, error) {
	isX86, err := isX86Image(r)
	if err != nil || !isX86 {
		return false, err
	}
	loadflags, err := x86Loadflags(r)
	if err != nil {
		return false, err
	}
	return loadflags&x86LoadedHigh != 0, nil
}

// IsX86zImage reports whether r is an x86 boot image whose
// protected-mode part loads low.
func IsX86zImage(r io.ReadSeeker) (bool, error) {
	isX86, err := isX86Image(r)
	if err != nil || !isX86 {
		return false, err
	}
	loadflags, err := x86Loadflags(r)
	if err != nil {
		return false, err
	}
	return loadflags&x86LoadedHigh == 0, nil
}

// ARMuImageVersion extracts the kernel version from the image-name field
// of the uImage header ("Linux-4.1.15-..." at offset 32).
func ARMuImageVersion(r io.ReadSeeker) (string, error) {
	name := make([]byte, 32)
	if err := readAt(r, 32, name); err != nil {
		return "", err
	}
	match := kernelVersionRe.Find(name)
	if match == nil {
		return "", fmt.Errorf("could not find a kernel version in the uImage name field")
	}
	return string(match), nil
}

// ARMzImageVersion extracts the kernel version banner from the
// gzip-compressed kernel embedded in an ARM zImage.
func ARMzImageVersion(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	image, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	offset := bytes.Index(image, gzipMemberMarker)
	if offset < 0 {
		return "", fmt.Errorf("could not find a compressed kernel in the zImage")
	}
	gzReader, err := gzip.NewReader(bytes.NewReader(image[offset:]))
	if err != nil {
		return "", err
	}
	gzReader.Multistream(false)
	kernel, err := io.ReadAll(gzReader)
	// A truncated tail after the banner is fine; only fail if we did not
	// decompress enough to find it.
	match := linuxBannerRe.FindSubmatch(kernel)
	if match == nil {
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("could not find the kernel version banner in the zImage")
	}
	return string(match[1]), nil
}

func x86ImageVersion(r io.ReadSeeker) (string, error) {
	var ptr [2]byte
	if err := readAt(r, 0x20e, ptr[:]); err != nil {
		return "", err
	}
	offset := int64(binary.LittleEndian.Uint16(ptr[:]))
	if offset == 0 {
		return "", fmt.Errorf("the boot image does not carry a kernel version string")
	}
	// The pointer is relative to the start of the real-mode code segment.
	str := make([]byte, 512)
	if err := readAt(r, offset+0x200, str); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if end := bytes.IndexByte(str, 0x00); end >= 0 {
		str = str[:end]
	}
	// "4.1.30-1-MANJARO (builduser@...) #1 SMP ..." -> first token.
	if fields := bytes.Fields(str); len(fields) > 0 {
		return string(fields[0]), nil
	}
	return "", fmt.Errorf("the boot image kernel version string is empty")
}

// X86bzImageVersion extracts the kernel version from a bzImage.
func X86bzImageVersion(r io.ReadSeeker) (string, error) {
	return x86ImageVersion(r)
}

// X86zImageVersion extracts the kernel version from an x86 zImage.
func X86zImageVersion(r io.ReadSeeker) (string, error) {
	return x86ImageVersion(r)
}

// KernelVersion sniffs the kernel image layout and extracts its version.
func KernelVersion(r io.ReadSeeker) (string, error) {
	probes := []struct {
		detect  func(io.ReadSeeker) (bool, error)
		version func(io.ReadSeeker) (string, error)
	}{
		{IsARMuImage, ARMuImageVersion},
		{IsARMzImage, ARMzImageVersion},
		{IsX86bzImage, X86bzImageVersion},
		{IsX86zImage, X86zImageVersion},
	}
	for _, probe := range probes {
		matched, err := probe.detect(r)
		if err != nil {
			return "", err
		}
		if matched {
			return probe.version(r)
		}
	}
	return "", fmt.Errorf("not a supported kernel image")
}
