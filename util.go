// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package main

import (
	"github.com/MichaelACosta/uhu/pkg/config"
	"github.com/MichaelACosta/uhu/pkg/pack"
)

func openPackage() (*pack.Package, error) {
	return pack.Load(config.LocalConfigFilename())
}

func savePackage(pkg *pack.Package) error {
	return pkg.Save(config.LocalConfigFilename())
}
