// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MichaelACosta/uhu/pkg/cliutil"
)

var argparserPackage = &cobra.Command{
	Use:   "package {[flags]|SUBCOMMAND...}",
	Short: "Manage the local package",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,
}

func init() {
	argparser.AddCommand(argparserPackage)

	argparserPackage.AddCommand(&cobra.Command{
		Use:     "version VERSION",
		Aliases: []string{"new"},
		Short:   "Set the package version",
		Args:    cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			pkg, err := openPackage()
			if err != nil {
				return err
			}
			pkg.Version = args[0]
			return savePackage(pkg)
		},
	})

	argparserPackage.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the local package",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, args []string) error {
			pkg, err := openPackage()
			if err != nil {
				return err
			}
			fmt.Fprintln(flags.OutOrStdout(), pkg)
			return nil
		},
	})
}
