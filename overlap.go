// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"container/heap"

	"github.com/70data/terarkdb/internal/base"
	"github.com/70data/terarkdb/internal/manifest"
)

// overlapHeapItem identifies one file within one input level, and where it
// sits in that level's file list (so the next file can be pushed once this
// one is popped).
type overlapHeapItem struct {
	f     *manifest.FileMetadata
	level int
	index int
}

type overlapMinHeap struct {
	items []overlapHeapItem
	cmp   base.Compare
}

func (h overlapMinHeap) Len() int { return len(h.items) }
func (h overlapMinHeap) Less(i, j int) bool {
	return h.items[i].f.Smallest.Compare(h.cmp, h.items[j].f.Smallest) < 0
}
func (h overlapMinHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *overlapMinHeap) Push(x interface{}) {
	h.items = append(h.items, x.(overlapHeapItem))
}
func (h *overlapMinHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// Nonoverlapping reports whether every file among d's inputs is key-disjoint
// from every other: a min-heap merge seeded with every L0 input plus the
// first file of each higher input level, draining in smallest-key order and
// checking each popped file's smallest key against the previous popped
// file's largest key (spec §4.3). A true result signals the merger may
// short-circuit into a pointer-level trivial move rather than a byte-level
// merge.
func Nonoverlapping(cmp base.Compare, d *CompactionDescriptor) bool {
	h := &overlapMinHeap{cmp: cmp}
	for _, in := range d.Inputs {
		if len(in.Files) == 0 {
			continue
		}
		if in.Level == 0 {
			for i, f := range in.Files {
				heap.Push(h, overlapHeapItem{f: f, level: 0, index: i})
			}
		} else {
			heap.Push(h, overlapHeapItem{f: in.Files[0], level: in.Level, index: 0})
		}
	}
	if h.Len() <= 1 {
		return true
	}
	var prev *overlapHeapItem
	for h.Len() > 0 {
		cur := heap.Pop(h).(overlapHeapItem)
		if prev != nil && prev.f.Largest.Compare(cmp, cur.f.Smallest) >= 0 {
			return false
		}
		if cur.level != 0 {
			// Find the owning input group to push the next file, if any.
			for _, in := range d.Inputs {
				if in.Level == cur.level && cur.index+1 < len(in.Files) {
					heap.Push(h, overlapHeapItem{f: in.Files[cur.index+1], level: cur.level, index: cur.index + 1})
					break
				}
			}
		}
		curCopy := cur
		prev = &curCopy
	}
	return true
}
