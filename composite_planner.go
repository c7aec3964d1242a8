// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"container/heap"

	"github.com/70data/terarkdb/internal/base"
	"github.com/70data/terarkdb/internal/manifest"
)

// compositeTarget names the level and representative map-sst file
// CompositePlanner will work on, or signals that the level instead needs a
// full rebuild into a single map file first.
type compositeTarget struct {
	level   int
	file    *manifest.FileMetadata
	rebuild bool
}

// selectCompositeTarget walks sorted runs deepest-first looking for a
// level to narrow CompositePlanner's ranges over. A level still split
// across more than one file takes immediate priority (it must be
// consolidated into one map file before its index can be range-split);
// otherwise the level whose map file reports the highest read
// amplification wins (spec §4.5, §6).
func selectCompositeTarget(v *manifest.Version, runs []SortedRun, o *Options) (compositeTarget, bool) {
	if o.TableProperties == nil {
		return compositeTarget{}, false
	}
	var best compositeTarget
	found := false
	var maxAmp uint64
	for i := len(runs) - 1; i >= 0; i-- {
		sr := runs[i]
		if sr.WaitReduce {
			continue
		}
		var f *manifest.FileMetadata
		if sr.Level > 0 {
			files := v.LevelFiles(sr.Level)
			if len(files) == 0 {
				continue
			}
			if manifest.AnyBeingCompacted(files) {
				continue
			}
			if len(files) > 1 {
				return compositeTarget{level: sr.Level, rebuild: true}, true
			}
			f = files[0]
		} else {
			if sr.File.BeingCompacted || sr.File.Purpose != manifest.PurposeMap {
				continue
			}
			f = sr.File
		}
		amp, ok := o.TableProperties.ReadAmplification(f)
		if !ok {
			continue
		}
		if !found || amp >= maxAmp {
			maxAmp, best, found = amp, compositeTarget{level: sr.Level, file: f}, true
		}
	}
	return best, found
}

// isPerfectCompositeElement reports whether a map element resolves 1:1 to
// a single essence file whose own range exactly matches the element's
// (spec §4.5, "Perfect element").
func isPerfectCompositeElement(e MapElement, dependents manifest.DependentFiles, cmp base.Compare) bool {
	if len(e.Link) != 1 {
		return false
	}
	f, ok := dependents[e.Link[0].FileNumber]
	if !ok || f.Purpose != manifest.PurposeEssence {
		return false
	}
	return e.IncludeSmallest && e.IncludeLargest &&
		cmp(e.SmallestKey.UserKey, f.Smallest.UserKey) == 0 &&
		cmp(e.LargestKey.UserKey, f.Largest.UserKey) == 0
}

func copyUserKey(k []byte) []byte {
	out := make([]byte, len(k))
	copy(out, k)
	return out
}

// mergeAdjacentCompositeRanges coalesces ranges sharing a start or limit
// boundary, the cleanup the teacher's new_compaction() closure performs
// before emitting a descriptor.
func mergeAdjacentCompositeRanges(cmp base.Compare, ranges []Range) []Range {
	if len(ranges) < 2 {
		return ranges
	}
	out := ranges[:1]
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if cmp(r.Start, last.Start) == 0 || cmp(r.Limit, last.Limit) == 0 {
			last.Limit = r.Limit
			last.IncludeLimit = r.IncludeLimit
			continue
		}
		out = append(out, r)
	}
	return out
}

func sortCompositeRanges(cmp base.Compare, ranges []Range) {
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0; j-- {
			a, b := ranges[j-1], ranges[j]
			less := compositeRangeLess(cmp, a, b)
			if less {
				break
			}
			ranges[j-1], ranges[j] = ranges[j], ranges[j-1]
		}
	}
}

// compositeRangeLess orders by limit, then inclusion of limit, then start
// (spec §4.5 step 2).
func compositeRangeLess(cmp base.Compare, a, b Range) bool {
	if r := cmp(a.Limit, b.Limit); r != 0 {
		return r < 0
	}
	if a.IncludeLimit != b.IncludeLimit {
		return a.IncludeLimit
	}
	if r := cmp(a.Start, b.Start); r != 0 {
		return r < 0
	}
	return b.IncludeStart && !a.IncludeStart
}

type compositeHeapItem struct {
	key []byte
	p   float64
}

type compositeMaxHeap []compositeHeapItem

func (h compositeMaxHeap) Len() int            { return len(h) }
func (h compositeMaxHeap) Less(i, j int) bool  { return h[i].p > h[j].p }
func (h compositeMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *compositeMaxHeap) Push(x interface{}) { *h = append(*h, x.(compositeHeapItem)) }
func (h *compositeMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PickCompositeCompaction narrows a map-sst's index into a small set of
// user-key ranges worth rewriting (spec §4.5). It runs as the fallback
// after PolicyEngine's policies all decline. Without a TableProperties
// cache it reports no pick, mirroring the teacher's "table_cache_ !=
// nullptr" gate. A whole-level map rebuild needs only that cache; the
// range passes over a single map file also need a MapElementIteratorFactory,
// and without one they report no pick.
func PickCompositeCompaction(
	v *manifest.Version, runs []SortedRun, o *Options, inProgress *InProgressCompactions,
) (*CompactionDescriptor, error) {
	target, found := selectCompositeTarget(v, runs, o)
	if !found {
		return nil, nil
	}

	buildDescriptor := func(purpose manifest.Purpose, files []*manifest.FileMetadata, ranges []Range) *CompactionDescriptor {
		return &CompactionDescriptor{
			Inputs:             []CompactionInputs{{Level: target.level, Files: files}},
			OutputLevel:        target.level,
			OutputPathID:       files[0].PathID,
			TargetFileSize:     o.TargetFileSize(maxInt(1, target.level)),
			MaxCompactionBytes: ^uint64(0),
			MaxSubcompactions:  o.MaxSubcompactions,
			Purpose:            purpose,
			Reason:             ReasonCompositeAmplification,
			PartialCompaction:  true,
			InputRanges:        ranges,
		}
	}

	if target.rebuild {
		files := v.LevelFiles(target.level)
		d := buildDescriptor(manifest.PurposeMap, files, nil)
		d.MaxSubcompactions = 1
		return d, nil
	}

	if o.MapElementIterator == nil {
		return nil, nil
	}
	it, err := o.MapElementIterator.NewIterator(target.file)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	cmp := o.Comparer
	dependents := v.Dependents
	perfect := func(e MapElement) bool { return isPerfectCompositeElement(e, dependents, cmp) }
	files := []*manifest.FileMetadata{target.file}

	// Pass 1: link-sst — elements whose link-set is fragmented across more
	// than two files, none of which dominates, need their links rewritten.
	type fileUse struct{ size, used uint64 }
	fileUsed := map[uint64]*fileUse{}
	var ranges []Range
	hasStart := false
	var cur Range

	e, err := it.First()
	if err != nil {
		return nil, err
	}
	for e != nil {
		if !perfect(*e) {
			var sum, max uint64
			for _, l := range e.Link {
				sum += l.Size
				if l.Size > max {
					max = l.Size
				}
				fu, ok := fileUsed[l.FileNumber]
				if !ok {
					fu = &fileUse{size: dependents.TransitiveSizeOf(l.FileNumber, nil)}
					fileUsed[l.FileNumber] = fu
				}
				fu.used += l.Size
			}
			if len(e.Link) > 2 && max*2 < sum {
				if !hasStart {
					hasStart = true
					cur = Range{Start: copyUserKey(e.SmallestKey.UserKey), IncludeStart: true}
				}
				cur.Limit = copyUserKey(e.LargestKey.UserKey)
				cur.IncludeLimit = false
			} else if hasStart {
				hasStart = false
				if cmp(e.SmallestKey.UserKey, cur.Limit) != 0 {
					cur.Limit = copyUserKey(e.SmallestKey.UserKey)
					ranges = append(ranges, cur)
					if len(ranges) >= o.MaxSubcompactions {
						break
					}
				}
			}
		}
		if e, err = it.Next(); err != nil {
			return nil, err
		}
	}
	if hasStart {
		cur.IncludeLimit = true
		cur.Limit = copyUserKey(target.file.Largest.UserKey)
		ranges = append(ranges, cur)
	}
	if len(ranges) > 0 {
		return buildDescriptor(manifest.PurposeLink, files, mergeAdjacentCompositeRanges(cmp, ranges)), nil
	}

	// Pass 2: essence — a priority heap over imperfect elements, ranked by
	// link fan-out plus wasted bytes, each grown forward then backward up
	// to 2x the target file size.
	h := &compositeMaxHeap{}
	if e, err = it.First(); err != nil {
		return nil, err
	}
	for e != nil {
		p := float64(len(e.Link))
		ok := true
		var size, used uint64
		for _, l := range e.Link {
			fu, present := fileUsed[l.FileNumber]
			if !present {
				ok = false
				break
			}
			size += fu.size
			used += fu.used
		}
		if ok && size > 0 {
			unused := used
			if unused > size {
				unused = size
			}
			p += 2.0 * float64(size-unused) / float64(size)
			heap.Push(h, compositeHeapItem{key: copyUserKey(e.LargestKey.UserKey), p: p})
		}
		if e, err = it.Next(); err != nil {
			return nil, err
		}
	}
	maxRangeSize := 2 * o.TargetFileSize(maxInt(1, target.level))
	estimateSize := func(e MapElement) uint64 {
		var sum uint64
		for _, l := range e.Link {
			sum += l.Size
		}
		return sum
	}
	uniqueCheck := map[string]bool{}
	for h.Len() > 0 {
		item := heap.Pop(h).(compositeHeapItem)
		if uniqueCheck[string(item.key)] {
			continue
		}
		if e, err = it.SeekGE(item.key); err != nil {
			return nil, err
		}
		if e == nil || uniqueCheck[string(e.LargestKey.UserKey)] {
			continue
		}
		r := Range{
			Start:        copyUserKey(e.SmallestKey.UserKey),
			Limit:        copyUserKey(e.LargestKey.UserKey),
			IncludeStart: true,
		}
		sum := estimateSize(*e)
		uniqueCheck[string(r.Limit)] = true
		for sum < maxRangeSize {
			if e, err = it.Next(); err != nil {
				return nil, err
			}
			if e == nil {
				r.IncludeLimit = true
				r.Limit = copyUserKey(target.file.Largest.UserKey)
				break
			}
			if uniqueCheck[string(e.LargestKey.UserKey)] ||
				(perfect(*e) && cmp(e.SmallestKey.UserKey, r.Limit) != 0) {
				r.Limit = copyUserKey(e.SmallestKey.UserKey)
				break
			}
			r.Limit = copyUserKey(e.LargestKey.UserKey)
			sum += estimateSize(*e)
			uniqueCheck[string(r.Limit)] = true
		}
		if sum < maxRangeSize {
			if _, err = it.SeekGE(item.key); err != nil {
				return nil, err
			}
			for sum < maxRangeSize {
				if e, err = it.Prev(); err != nil {
					return nil, err
				}
				if e == nil || uniqueCheck[string(e.LargestKey.UserKey)] || perfect(*e) {
					break
				}
				r.Start = copyUserKey(e.SmallestKey.UserKey)
				sum += estimateSize(*e)
				uniqueCheck[string(e.LargestKey.UserKey)] = true
			}
		}
		ranges = append(ranges, r)
		if len(ranges) >= o.MaxSubcompactions {
			break
		}
	}
	if len(ranges) > 0 {
		sortCompositeRanges(cmp, ranges)
		return buildDescriptor(manifest.PurposeEssence, files, ranges), nil
	}

	// Pass 3: final sweep covering every contiguous run of imperfect
	// elements, the fallback when neither earlier pass produced anything.
	hasStart = false
	if e, err = it.First(); err != nil {
		return nil, err
	}
	for e != nil {
		if hasStart {
			if perfect(*e) && cmp(e.SmallestKey.UserKey, cur.Limit) != 0 {
				hasStart = false
				cur.Limit = copyUserKey(e.SmallestKey.UserKey)
				cur.IncludeStart, cur.IncludeLimit = true, false
				ranges = append(ranges, cur)
				if len(ranges) >= o.MaxSubcompactions {
					break
				}
			} else {
				cur.Limit = copyUserKey(e.LargestKey.UserKey)
			}
		} else if !perfect(*e) {
			hasStart = true
			cur = Range{Start: copyUserKey(e.SmallestKey.UserKey), Limit: copyUserKey(e.LargestKey.UserKey)}
		}
		if e, err = it.Next(); err != nil {
			return nil, err
		}
	}
	if hasStart {
		cur.IncludeStart, cur.IncludeLimit = true, true
		cur.Limit = copyUserKey(target.file.Largest.UserKey)
		ranges = append(ranges, cur)
	}
	if len(ranges) == 0 {
		return nil, nil
	}
	return buildDescriptor(manifest.PurposeEssence, files, ranges), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
