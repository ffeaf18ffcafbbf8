// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

// This file defines a simple spell checker for use in name errors
// ("name 'fpp' is not defined; did you mean foo?").

import (
	"strings"
	"unicode"

	"go.pysleuth.net/syntax"
)

// suggest returns the visible binding nearest to the unresolved name,
// or "". Candidates are the local names of every scope enclosing the
// reference.
func (p *Program) suggest(name *syntax.Name) string {
	var candidates []string
	seen := make(map[string]bool)
	for scope := syntax.Scope(name); scope != nil; scope = outerScopeOf(scope) {
		for _, local := range syntax.LocalNames(scope) {
			if !seen[local] {
				seen[local] = true
				candidates = append(candidates, local)
			}
		}
	}
	return nearest(name.ID, candidates)
}

func outerScopeOf(scope syntax.Node) syntax.Node {
	parent := syntax.Parent(scope)
	if parent == nil {
		return nil
	}
	return syntax.Scope(parent)
}

// nearest returns the element of candidates
// nearest to x using the Levenshtein metric.
func nearest(x string, candidates []string) string {
	// Ignore underscores and case when matching.
	fold := func(s string) string {
		return strings.Map(func(r rune) rune {
			if r == '_' {
				return -1
			}
			return unicode.ToLower(r)
		}, s)
	}

	x = fold(x)

	var best string
	bestD := (len(x) + 1) / 2 // allow up to 50% typos
	for _, c := range candidates {
		d := levenshtein(x, fold(c), bestD)
		if d < bestD {
			bestD = d
			best = c
		}
	}
	return best
}

// levenshtein returns the non-negative Levenshtein edit distance
// between the byte strings x and y.
//
// If the computed distance exceeds max,
// the function may return early with an approximate value > max.
func levenshtein(x, y string, max int) int {
	// This implementation is derived from one by Laurent Le Brun in
	// Bazel that uses the single-row space efficiency trick
	// described at bitbucket.org/clearer/iosifovich.

	// Let x be the shorter string.
	if len(x) > len(y) {
		x, y = y, x
	}

	// Remove common prefix.
	for i := 0; i < len(x); i++ {
		if x[i] != y[i] {
			x = x[i:]
			y = y[i:]
			break
		}
	}
	if x == "" {
		return len(y)
	}

	row := make([]int, len(y)+1)
	for i := range row {
		row[i] = i
	}

	for i := 1; i <= len(x); i++ {
		row[0] = i
		best := i
		prev := i - 1
		for j := 1; j <= len(y); j++ {
			a := prev + b2i(x[i-1] != y[j-1]) // substitution
			b := 1 + row[j-1]                 // deletion
			c := 1 + row[j]                   // insertion
			k := minInt(a, minInt(b, c))
			prev, row[j] = row[j], k
			best = minInt(best, k)
		}
		if best > max {
			return best
		}
	}
	return row[len(y)]
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}
