// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package base holds the small set of key and comparator primitives shared
// by the picker and the manifest packages. It deliberately carries none of
// the sstable- or iterator-facing machinery of a full storage engine: the
// picker only ever needs to order keys and break ties between files.
package base

// Compare returns -1, 0, or +1 depending on whether a is less than, equal
// to, or greater than b, using a user-key ordering. A nil Compare is never
// valid; callers must supply one (DefaultCompare for raw byte ordering).
type Compare func(a, b []byte) int

// DefaultCompare compares using the natural byte-wise lexicographic order.
func DefaultCompare(a, b []byte) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return -1
	case len(b) == 0:
		return 1
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
