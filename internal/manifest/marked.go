// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package manifest

import "github.com/google/btree"

// MarkedForCompactionSet is an ordered set of (level, file) pairs that have
// been flagged externally (e.g. by a tombstone-density collector) as
// wanting reclamation. It orders by decreasing level and, within a level,
// by increasing LargestSeqNum, matching the order DeleteTriggered wants to
// consider candidates in: deepest files (furthest from being naturally
// compacted again) and oldest-within-level first.
type MarkedForCompactionSet struct {
	tree *btree.BTreeG[tableAndLevel]
}

type tableAndLevel struct {
	meta  *FileMetadata
	level int
}

func markedLess(a, b tableAndLevel) bool {
	if a.level != b.level {
		return a.level > b.level
	}
	if a.meta.LargestSeqNum != b.meta.LargestSeqNum {
		return a.meta.LargestSeqNum < b.meta.LargestSeqNum
	}
	return a.meta.FileNum < b.meta.FileNum
}

// Insert adds a (file, level) pair to the set.
func (s *MarkedForCompactionSet) Insert(meta *FileMetadata, level int) {
	if s.tree == nil {
		s.tree = btree.NewG[tableAndLevel](8, markedLess)
	}
	s.tree.ReplaceOrInsert(tableAndLevel{meta: meta, level: level})
}

// Count returns the number of marked files.
func (s *MarkedForCompactionSet) Count() int {
	if s.tree == nil {
		return 0
	}
	return s.tree.Len()
}

// Each calls fn for every marked file, ordered by decreasing level and then
// increasing LargestSeqNum, stopping early if fn returns false.
func (s *MarkedForCompactionSet) Each(fn func(meta *FileMetadata, level int) bool) {
	if s.tree == nil {
		return
	}
	s.tree.Ascend(func(t tableAndLevel) bool {
		return fn(t.meta, t.level)
	})
}
