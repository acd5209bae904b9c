// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MichaelACosta/uhu/pkg/cliutil"
	"github.com/MichaelACosta/uhu/pkg/installcondition"
	"github.com/MichaelACosta/uhu/pkg/object"
)

// flagName turns an object option key into a flag name; option keys may
// carry a "?" suffix or underscores that don't belong on the command
// line.
func flagName(key string) string {
	return strings.ReplaceAll(strings.TrimSuffix(key, "?"), "_", "-")
}

func init() {
	var flagMode string
	// keyByFlag maps a flag name back to the object option it sets.
	keyByFlag := make(map[string]string)

	cmd := &cobra.Command{
		Use:   "add [flags] FILENAME",
		Short: "Add an object to the package",
		Long: "Adds FILENAME to the local package as an object installed with --mode.  " +
			"Which further options apply (and which are required) depends on the mode; " +
			"options given for a mode that does not take them are an error.",
		Args: cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			options := map[string]interface{}{
				"filename": args[0],
				"mode":     flagMode,
			}
			var flagErr error
			flags.Flags().Visit(func(flag *pflag.Flag) {
				key, ok := keyByFlag[flag.Name]
				if !ok {
					return
				}
				var value interface{}
				var err error
				switch flag.Value.Type() {
				case "bool":
					value, err = flags.Flags().GetBool(flag.Name)
				case "int":
					value, err = flags.Flags().GetInt(flag.Name)
				case "int64":
					value, err = flags.Flags().GetInt64(flag.Name)
				default:
					value, err = flags.Flags().GetString(flag.Name)
				}
				if err != nil && flagErr == nil {
					flagErr = err
				}
				options[key] = value
			})
			if flagErr != nil {
				return flagErr
			}

			pkg, err := openPackage()
			if err != nil {
				return err
			}
			if err := pkg.AddObject(options); err != nil {
				return err
			}
			return savePackage(pkg)
		},
	}

	cmd.Flags().StringVarP(&flagMode, "mode", "m", "",
		"Installation mode: "+strings.Join(object.ModeNames(), ", "))
	_ = cmd.MarkFlagRequired("mode")

	registerOption := func(opt object.Option) {
		name := flagName(opt.Key)
		if _, ok := keyByFlag[name]; ok {
			return
		}
		keyByFlag[name] = opt.Key
		help := fmt.Sprintf("Set the %q option", opt.Key)
		if len(opt.Choices) > 0 {
			help += " (one of " + strings.Join(opt.Choices, ", ") + ")"
		}
		switch def := opt.Default.(type) {
		case bool:
			cmd.Flags().Bool(name, def, help)
		case int:
			cmd.Flags().Int(name, def, help)
		default:
			cmd.Flags().String(name, "", help)
		}
	}
	for _, modeName := range object.ModeNames() {
		mode, err := object.ModeByName(modeName)
		if err != nil {
			panic(err)
		}
		for _, opt := range mode.Options {
			registerOption(opt)
		}
	}
	registerOption(object.Option{Key: installcondition.OptCondition,
		Choices: []string{
			installcondition.Always,
			installcondition.ContentDiverges,
			installcondition.VersionDiverges,
		}})
	registerOption(object.Option{Key: installcondition.OptPatternType,
		Choices: []string{
			installcondition.PatternLinuxKernel,
			installcondition.PatternUBoot,
			installcondition.PatternRegexp,
		}})
	registerOption(object.Option{Key: installcondition.OptPattern})
	registerOption(object.Option{Key: installcondition.OptVersion})
	cmd.Flags().Int64(flagName(installcondition.OptSeek), 0,
		fmt.Sprintf("Set the %q option", installcondition.OptSeek))
	keyByFlag[flagName(installcondition.OptSeek)] = installcondition.OptSeek
	cmd.Flags().Int64(flagName(installcondition.OptBufferSize), -1,
		fmt.Sprintf("Set the %q option", installcondition.OptBufferSize))
	keyByFlag[flagName(installcondition.OptBufferSize)] = installcondition.OptBufferSize

	argparserPackage.AddCommand(cmd)
}
