// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "github.com/70data/terarkdb/internal/manifest"

// needsRangeCompact reports whether a map element overlaps [begin, end]
// (nil bounds are unbounded) and whether its link set — directly, or one
// level through each link's own dependents — touches filesBeingCompact
// (spec §4.6).
func needsRangeCompact(v *manifest.Version, cmp func(a, b []byte) int, e *MapElement, begin, end []byte, filesBeingCompact map[uint64]bool) bool {
	if begin != nil && cmp(e.LargestKey.UserKey, begin) < 0 {
		return false
	}
	if end != nil && cmp(e.SmallestKey.UserKey, end) > 0 {
		return false
	}
	for _, link := range e.Link {
		if filesBeingCompact[link.FileNumber] {
			return true
		}
		f, ok := v.Dependents[link.FileNumber]
		if !ok {
			continue
		}
		for _, dep := range f.Dependents {
			if filesBeingCompact[dep] {
				return true
			}
		}
	}
	return false
}

func copyRangeKey(e *MapElement, smallest bool) []byte {
	if smallest {
		return copyUserKey(e.SmallestKey.UserKey)
	}
	return copyUserKey(e.LargestKey.UserKey)
}

// PickRangeCompaction plans a manual compaction over a single level,
// restricted to the sub-ranges whose map elements actually touch
// filesBeingCompact (spec §4.6). If level 0 is still split across more
// than one file, it instead emits a whole-level map-sst rebuild, mirroring
// CompositePlanner's consolidation step — a range-level iterator can only
// be opened once the level has been collapsed to a single map file.
//
// manualConflict is set (with a nil descriptor) when the level already has
// a file mid-compaction; the caller should treat that as a conflict to
// retry later, not as "no work".
func PickRangeCompaction(
	v *manifest.Version, level int, begin, end []byte, filesBeingCompact map[uint64]bool, o *Options,
) (d *CompactionDescriptor, manualConflict bool, err error) {
	files := v.LevelFiles(level)
	if len(filesBeingCompact) == 0 || len(files) == 0 {
		return nil, false, nil
	}
	if manifest.AnyBeingCompacted(files) {
		return nil, true, nil
	}

	if level == 0 && len(files) > 1 {
		return &CompactionDescriptor{
			Inputs:             []CompactionInputs{{Level: level, Files: files}},
			OutputLevel:        level,
			OutputPathID:       PathForSize(o.Paths, 1<<20, o.SizeRatio),
			TargetFileSize:     o.TargetFileSize(level),
			MaxCompactionBytes: ^uint64(0),
			MaxSubcompactions:  1,
			Purpose:            manifest.PurposeMap,
		}, false, nil
	}

	if o.MapElementIterator == nil || len(files) != 1 {
		return nil, false, nil
	}
	it, err := o.MapElementIterator.NewIterator(files[0])
	if err != nil {
		return nil, false, err
	}
	defer it.Close()

	maxSubcompactions := o.MaxSubcompactions
	if maxSubcompactions < 1 {
		maxSubcompactions = 1
	}
	maxCompactionBytes := o.MaxCompactionBytes

	var ranges []Range
	var estimatedTotal uint64
	var hasStart bool
	var cur Range
	var subcompactSize uint64

	elementSize := func(e *MapElement) uint64 {
		var n uint64
		for _, l := range e.Link {
			n += l.Size
		}
		return n
	}

	e, decodeErr := it.First()
	for ; e != nil && decodeErr == nil; e, decodeErr = it.Next() {
		needs := needsRangeCompact(v, v.Comparer, e, begin, end, filesBeingCompact)
		if !hasStart {
			if !needs {
				continue
			}
			subcompactSize = elementSize(e)
			hasStart = true
			cur = Range{Start: copyRangeKey(e, true), Limit: copyRangeKey(e, false)}
			continue
		}
		if needs {
			if subcompactSize < maxCompactionBytes {
				subcompactSize += elementSize(e)
				cur.Limit = copyRangeKey(e, false)
				continue
			}
			cur.Limit = copyRangeKey(e, true)
			cur.IncludeStart, cur.IncludeLimit = true, false
			estimatedTotal += subcompactSize
			ranges = append(ranges, cur)
			if len(ranges) >= maxSubcompactions {
				hasStart = false
				break
			}
			subcompactSize = elementSize(e)
			cur = Range{Start: copyRangeKey(e, true), Limit: copyRangeKey(e, false)}
			continue
		}
		hasStart = false
		cur.Limit = copyRangeKey(e, true)
		cur.IncludeStart, cur.IncludeLimit = true, false
		estimatedTotal += subcompactSize
		ranges = append(ranges, cur)
		if len(ranges) >= maxSubcompactions {
			break
		}
		subcompactSize = 0
	}
	if decodeErr != nil {
		o.Logger.Infof("range-planner: corrupt map element in file %d: %v", files[0].FileNum, decodeErr)
		return nil, false, nil
	}
	if hasStart {
		cur.IncludeStart, cur.IncludeLimit = true, true
		var endKey []byte
		for _, f := range files {
			if endKey == nil || v.Comparer(f.Largest.UserKey, endKey) > 0 {
				endKey = f.Largest.UserKey
			}
		}
		cur.Limit = copyUserKey(endKey)
		estimatedTotal += subcompactSize
		ranges = append(ranges, cur)
	}
	if len(ranges) == 0 {
		return nil, false, nil
	}
	sortCompositeRanges(v.Comparer, ranges)

	return &CompactionDescriptor{
		Inputs:             []CompactionInputs{{Level: level, Files: files}},
		OutputLevel:        level,
		OutputPathID:       PathForSize(o.Paths, estimatedTotal, o.SizeRatio),
		TargetFileSize:     o.TargetFileSize(maxInt(1, level)),
		MaxCompactionBytes: ^uint64(0),
		CompressionEnabled: true,
		Purpose:            manifest.PurposeEssence,
		Reason:             ReasonManualCompaction,
		ManualCompaction:   true,
		PartialCompaction:  true,
		InputRanges:        ranges,
	}, false, nil
}

// PickFullRangeCompaction plans a "compact everything" manual job spanning
// every non-empty level from the shallowest down (spec §4.7). It reports
// manualConflict if L0 is the start level and already mid-compaction, or
// if any candidate input overlaps a live job's output range.
func PickFullRangeCompaction(v *manifest.Version, o *Options, inProgress *InProgressCompactions) (d *CompactionDescriptor, manualConflict bool) {
	startLevel := -1
	for lvl := 0; lvl < v.NumLevels(); lvl++ {
		if len(v.LevelFiles(lvl)) != 0 {
			startLevel = lvl
			break
		}
	}
	if startLevel < 0 {
		return nil, false
	}
	if startLevel == 0 && inProgress.HasOutputLevel(0) {
		return nil, true
	}

	var inputs []CompactionInputs
	for lvl := startLevel; lvl < v.NumLevels(); lvl++ {
		files := v.LevelFiles(lvl)
		if len(files) == 0 {
			continue
		}
		if manifest.AnyBeingCompacted(files) {
			return nil, true
		}
		inputs = append(inputs, CompactionInputs{Level: lvl, Files: files})
	}
	outputLevel := o.lastLevel()
	if inProgress.FilesRangeOverlapWithCompaction(inputs, outputLevel) {
		return nil, true
	}

	purpose := manifest.PurposeEssence
	maxSubcompactions := o.MaxSubcompactions
	if o.EnableLazyCompaction {
		purpose = manifest.PurposeMap
		maxSubcompactions = 1
	}

	var estimatedTotal uint64
	for _, in := range inputs {
		for _, f := range in.Files {
			estimatedTotal += f.Size
		}
	}

	return &CompactionDescriptor{
		Inputs:             inputs,
		OutputLevel:        outputLevel,
		OutputPathID:       PathForSize(o.Paths, estimatedTotal, o.SizeRatio),
		TargetFileSize:     o.TargetFileSize(maxInt(1, outputLevel)),
		MaxCompactionBytes: ^uint64(0),
		CompressionEnabled: true,
		MaxSubcompactions:  maxSubcompactions,
		Purpose:            purpose,
		Reason:             ReasonManualCompaction,
		ManualCompaction:   true,
	}, false
}
