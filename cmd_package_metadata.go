// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MichaelACosta/uhu/pkg/cliutil"
)

func init() {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Show the validated package metadata as the server sees it",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(flags *cobra.Command, args []string) error {
			pkg, err := openPackage()
			if err != nil {
				return err
			}
			metadata, err := pkg.Metadata()
			if err != nil {
				return err
			}
			jsonBytes, err := json.MarshalIndent(metadata, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(flags.OutOrStdout(), string(jsonBytes))
			return nil
		},
	}
	argparserPackage.AddCommand(cmd)
}
