// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pysleuth

import (
	"go.pysleuth.net/syntax"
)

// A Seq is a pull stream of inferred values. Next returns Done when
// the stream is exhausted, or the inference error that ended it.
//
// A value of nil is the Uninferable result: the engine knows a value
// exists at that position but cannot determine it.
type Seq struct {
	values []syntax.Node
	err    error
	next   int
}

func newSeq(values []syntax.Node, err error) *Seq {
	return &Seq{values: values, err: err}
}

// Next returns the next inferred value. After the last value it
// returns Done, or the error that terminated inference.
func (s *Seq) Next() (syntax.Node, error) {
	if s.next < len(s.values) {
		v := s.values[s.next]
		s.next++
		return v, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, Done
}

// Collect drains the remaining values. A sequence that terminated
// with an inference error yields that error; Done is not an error.
func (s *Seq) Collect() ([]syntax.Node, error) {
	var out []syntax.Node
	for {
		v, err := s.Next()
		if err == Done {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
