// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/MichaelACosta/uhu/pkg/cliutil"
	"github.com/MichaelACosta/uhu/pkg/pack"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remove FILENAME_OR_SHA256SUM",
		Short: "Remove an object from the package",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			pkg, err := openPackage()
			if err != nil {
				return err
			}
			err = pkg.RemoveObject(args[0])
			if errors.Is(err, pack.ErrObjectNotFound) {
				// Maybe the argument is a digest rather than a filename.
				for _, obj := range pkg.Objects() {
					sha256sum, _, shaErr := obj.Sha256sum()
					if shaErr == nil && sha256sum == args[0] {
						err = pkg.RemoveObject(obj.Filename())
						break
					}
				}
			}
			if err != nil {
				return err
			}
			return savePackage(pkg)
		},
	}
	argparserPackage.AddCommand(cmd)
}
