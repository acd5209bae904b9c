// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MichaelACosta/uhu/pkg/cliutil"
	"github.com/MichaelACosta/uhu/pkg/config"
	"github.com/MichaelACosta/uhu/pkg/pack"
)

var argparserProduct = &cobra.Command{
	Use:   "product {[flags]|SUBCOMMAND...}",
	Short: "Manage the product the local package belongs to",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,
}

func init() {
	argparser.AddCommand(argparserProduct)

	argparserProduct.AddCommand(&cobra.Command{
		Use:   "use PRODUCT_UID",
		Short: "Start a local package for a product",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			filename := config.LocalConfigFilename()
			if _, err := os.Stat(filename); err == nil {
				return fmt.Errorf("package file %s already exists; remove it to start over", filename)
			}
			return pack.New(args[0]).Save(filename)
		},
	})

	argparserProduct.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the product of the local package",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, args []string) error {
			pkg, err := openPackage()
			if err != nil {
				return err
			}
			fmt.Fprintln(flags.OutOrStdout(), pkg.Product)
			return nil
		},
	})
}
