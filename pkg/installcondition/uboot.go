// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package installcondition

import (
	"fmt"
	"io"
	"regexp"
)

// U-Boot embeds its version banner as "U-Boot <version> (<build date>)",
// with an optional "SPL" marker for the secondary program loader.
var ubootBannerRe = regexp.MustCompile(`U-Boot(?: SPL)? (\S+) \(`)

// UBootVersion extracts the U-Boot version banner from a bootloader
// image.
func UBootVersion(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	image, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	match := ubootBannerRe.FindSubmatch(image)
	if match == nil {
		return "", fmt.Errorf("could not find the U-Boot version banner")
	}
	return string(match[1]), nil
}
