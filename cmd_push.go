// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MichaelACosta/uhu/pkg/cliutil"
	"github.com/MichaelACosta/uhu/pkg/config"
	"github.com/MichaelACosta/uhu/pkg/push"
)

// progressReporter narrates the upload on stdout.  Per-chunk dots are
// only printed when stdout is a terminal.
type progressReporter struct {
	out        io.Writer
	isTerminal bool
}

func (r *progressReporter) ObjectSkipped(filename, _ string) {
	fmt.Fprintf(r.out, "  %s: already on the server, skipping\n", filename)
}

func (r *progressReporter) ObjectUploading(filename, _ string, size int64) {
	fmt.Fprintf(r.out, "  %s: uploading %d bytes\n", filename, size)
}

func (r *progressReporter) ObjectChunk(_ string, _ int64) {
	if r.isTerminal {
		fmt.Fprint(r.out, ".")
	}
}

func (r *progressReporter) ObjectUploaded(filename, _ string) {
	if r.isTerminal {
		fmt.Fprintln(r.out)
	}
	fmt.Fprintf(r.out, "  %s: done\n", filename)
}

func init() {
	cmd := &cobra.Command{
		Use:   "push VERSION",
		Short: "Push the local package to the server",
		Long: "Pushes the local package as VERSION: starts a package transaction, uploads " +
			"the objects the server does not already have, and finishes the transaction.  " +
			"Credentials come from UHU_ACCESS_ID/UHU_ACCESS_SECRET or the global " +
			"configuration file.",
		Args: cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			pkg, err := openPackage()
			if err != nil {
				return err
			}
			pkg.Version = args[0]

			creds, err := config.ReadCredentials()
			if err != nil {
				return err
			}
			// A server_url in the configuration file acts as a default
			// for UHU_SERVER_URL.
			if creds.ServerURL != "" && os.Getenv(config.ServerURLVar) == "" {
				if err := os.Setenv(config.ServerURLVar, creds.ServerURL); err != nil {
					return err
				}
			}

			pusher := &push.Pusher{
				Creds: creds,
				Reporter: &progressReporter{
					out:        flags.OutOrStdout(),
					isTerminal: term.IsTerminal(1),
				},
			}
			uid, err := pusher.Push(flags.Context(), pkg)
			if err != nil {
				return err
			}
			fmt.Fprintf(flags.OutOrStdout(), "Package uid: %s\n", uid)
			return nil
		},
	}
	argparser.AddCommand(cmd)
}
