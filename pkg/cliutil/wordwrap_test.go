// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package cliutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MichaelACosta/uhu/pkg/cliutil"
	"github.com/MichaelACosta/uhu/pkg/testutil"
)

func TestWrap(t *testing.T) {
	t.Parallel()
	type testcase struct {
		Width    int
		Input    string
		Expected string
	}
	testcases := map[string]testcase{
		"short": {
			Width:    80,
			Input:    "a short line",
			Expected: "a short line",
		},
		"break": {
			Width: 20,
			Input: "aaa bbb ccc ddd eee",
			// Wrapped to width-5.
			Expected: "aaa bbb ccc\nddd eee",
		},
		"keeps-double-spaces": {
			Width:    80,
			Input:    "Sentence one.  Sentence two.",
			Expected: "Sentence one.  Sentence two.",
		},
		"long-word": {
			Width:    10,
			Input:    "abcdefghijklmnop qrs",
			Expected: "abcdefghijklmnop\nqrs",
		},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tcData.Expected, cliutil.Wrap(tcData.Width, tcData.Input))
		})
	}
}

func TestWrapZeroWidthIsIdentity(t *testing.T) {
	t.Parallel()
	testutil.QuickCheck(t,
		func(str string) bool {
			return cliutil.Wrap(0, str) == str
		},
		testutil.QuickConfig{},
		[]interface{}{""},
		[]interface{}{"spam  eggs\nham"},
	)
}

func TestWrapIndent(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"aaa bbb\n     ccc ddd\n     eee",
		cliutil.WrapIndent(5, 18, "aaa bbb ccc ddd eee"))
}
