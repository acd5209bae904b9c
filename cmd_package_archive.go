// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MichaelACosta/uhu/pkg/archive"
	"github.com/MichaelACosta/uhu/pkg/cliutil"
)

func init() {
	var flagOutput string
	var flagForce bool
	cmd := &cobra.Command{
		Use:   "archive [flags]",
		Short: "Write the package to a .uhupkg archive",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, args []string) error {
			pkg, err := openPackage()
			if err != nil {
				return err
			}
			filename, digest, err := archive.Write(pkg, flagOutput, flagForce)
			if err != nil {
				return err
			}
			fmt.Fprintf(flags.OutOrStdout(), "%s\t%s\n", digest, filename)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "",
		"Write the archive to `FILE` instead of naming it after the package")
	cmd.Flags().BoolVar(&flagForce, "force", false,
		"Overwrite the destination if it already holds something else")
	argparserPackage.AddCommand(cmd)
}
