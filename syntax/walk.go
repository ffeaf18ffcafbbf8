// Copyright 2025 The Pysleuth Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// Walk traverses the syntax tree in depth-first order. It calls f
// before visiting each node; if f returns false the node's subtree is
// skipped.
func Walk(n Node, f func(Node) bool) {
	if n == nil {
		return
	}
	if !f(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, f)
	}
}
