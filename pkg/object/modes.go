// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package object

import (
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/MichaelACosta/uhu/pkg/installcondition"
)

// Option describes one installation option accepted by a mode.
type Option struct {
	Key      string
	Required bool
	// Default is applied when the option is absent.  A nil Default on a
	// non-required option means the option is simply omitted.
	Default interface{}
	// Choices restricts the accepted values when non-empty.
	Choices []string
}

// Mode describes how the target installs an object: which options it
// takes and whether install conditions apply to it.
type Mode struct {
	Name string
	// SupportsInstallCondition gates the install-condition-* options.
	SupportsInstallCondition bool
	// SupportsCompression makes metadata report the uncompressed size
	// for gzip/xz/lzop payloads.
	SupportsCompression bool
	Options             []Option
}

func targetOptions(targetTypes ...string) []Option {
	return []Option{
		{Key: "target-type", Required: true, Choices: targetTypes},
		{Key: "target", Required: true},
	}
}

//nolint:gochecknoglobals // Would be 'const'.
var modes = map[string]*Mode{
	"copy": {
		Name:                     "copy",
		SupportsInstallCondition: true,
		Options: append(targetOptions("device", "ubivolume", "mtdname"),
			Option{Key: "target-path", Required: true},
			Option{Key: "filesystem", Required: true, Choices: []string{
				"btrfs", "ext2", "ext3", "ext4", "vfat", "f2fs", "jffs2", "ubifs", "xfs",
			}},
			Option{Key: "mount-options", Default: ""},
			Option{Key: "format?", Default: false},
			Option{Key: "format-options", Default: ""},
		),
	},
	"flash": {
		Name:                     "flash",
		SupportsInstallCondition: true,
		SupportsCompression:      true,
		Options:                  targetOptions("device", "mtdname"),
	},
	"imxkobs": {
		Name: "imxkobs",
		Options: []Option{
			{Key: "1k_padding", Default: false},
			{Key: "search_exponent", Default: 2},
			{Key: "chip_0_device_path", Default: "/dev/mtd0"},
			{Key: "chip_1_device_path", Default: "/dev/mtd1"},
		},
	},
	"raw": {
		Name:                     "raw",
		SupportsInstallCondition: true,
		SupportsCompression:      true,
		Options: append(targetOptions("device"),
			Option{Key: "chunk-size", Default: 131072},
			Option{Key: "count", Default: -1},
			Option{Key: "seek", Default: 0},
			Option{Key: "skip", Default: 0},
			Option{Key: "truncate", Default: false},
		),
	},
	"tarball": {
		Name:                     "tarball",
		SupportsInstallCondition: true,
		Options: append(targetOptions("device", "ubivolume", "mtdname"),
			Option{Key: "target-path", Required: true},
			Option{Key: "filesystem", Required: true, Choices: []string{
				"btrfs", "ext2", "ext3", "ext4", "vfat", "f2fs", "jffs2", "ubifs", "xfs",
			}},
		),
	},
	"ubifs": {
		Name:                "ubifs",
		SupportsCompression: true,
		Options:             targetOptions("ubivolume"),
	},
	"uboot-env": {
		Name: "uboot-env",
	},
	"zephyr": {
		Name: "zephyr",
	},
}

// ModeNames returns the supported mode names, sorted.
func ModeNames() []string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModeByName looks a mode up, erroring with the offending name.
func ModeByName(name string) (*Mode, error) {
	mode, ok := modes[name]
	if !ok {
		return nil, fmt.Errorf("invalid object mode %q", name)
	}
	return mode, nil
}

// allowedOptions returns the full set of option keys valid for the mode,
// including the shared filename/mode keys and, when supported, the
// install-condition keys.
func (mode *Mode) allowedOptions() sets.String {
	allowed := sets.NewString("filename", "mode")
	for _, opt := range mode.Options {
		allowed.Insert(opt.Key)
	}
	if mode.SupportsInstallCondition {
		allowed.Insert(installcondition.Options()...)
	}
	return allowed
}
