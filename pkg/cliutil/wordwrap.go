// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package cliutil

import (
	"strings"
)

// Wrap the string `s` to a maximum width `w`.  Pass `w` == 0 to do no wrapping.
//
// In order to have some room for slop to avoid things like a short word being on a line by itself,
// most lines are actually wrapped to `w - 5`.
func Wrap(w int, s string) string {
	return wrap(0, w, s)
}

// Wrap the string `s` to a maximum width `w` with leading indent `i`.  The first line is not
// indented (this is assumed to be done by caller).  Pass `w` == 0 to do no wrapping
//
// In order to have some room for slop to avoid things like a short word being on a line by itself,
// most lines are actually wrapped to `w - 5`.
func WrapIndent(i, w int, s string) string {
	return wrap(i, w, s)
}

func wrap(indent, width int, str string) string {
	if width == 0 {
		return str
	}
	width -= 5
	if width <= indent {
		width = indent + 1
	}

	var ret strings.Builder
	for lineNum, line := range strings.Split(str, "\n") {
		if lineNum > 0 {
			ret.WriteByte('\n')
		}
		lineLen := indent
		for line != "" {
			// Take the run of spaces plus the word after it, so that
			// inter-word spacing survives the wrapping.
			wordStart := 0
			for wordStart < len(line) && line[wordStart] == ' ' {
				wordStart++
			}
			wordEnd := wordStart
			for wordEnd < len(line) && line[wordEnd] != ' ' {
				wordEnd++
			}
			chunk := line[:wordEnd]
			word := line[wordStart:wordEnd]
			line = line[wordEnd:]

			if lineLen > indent && lineLen+len(chunk) >= width {
				ret.WriteByte('\n')
				ret.WriteString(strings.Repeat(" ", indent))
				ret.WriteString(word)
				lineLen = indent + len(word)
			} else {
				ret.WriteString(chunk)
				lineLen += len(chunk)
			}
		}
	}
	return ret.String()
}
