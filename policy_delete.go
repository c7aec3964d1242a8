// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "github.com/70data/terarkdb/internal/manifest"

// pickFileMarkedForCompaction returns a file flagged MarkedForCompaction
// that isn't already an input to a live compaction, preferring the deepest
// level and, within a level, the file with the smallest LargestSeqNum
// (spec §4.4.6, "PickFilesMarkedForCompaction"): deep files are closer to
// their final reclamation and oldest-within-level files have had the
// longest to accumulate the tombstones that got them marked.
func pickFileMarkedForCompaction(v *manifest.Version) (level int, file *manifest.FileMetadata, ok bool) {
	var candidates manifest.MarkedForCompactionSet
	for lvl := 0; lvl < v.NumLevels(); lvl++ {
		for _, f := range v.LevelFiles(lvl) {
			if f.MarkedForCompaction && !f.BeingCompacted {
				candidates.Insert(f, lvl)
			}
		}
	}
	candidates.Each(func(meta *manifest.FileMetadata, lvl int) bool {
		level, file, ok = lvl, meta, true
		return false
	})
	return level, file, ok
}

// expandOverlappingL0 grows inputs to a fixpoint: any L0 file whose range
// intersects the current candidate range is pulled in, since two
// overlapping L0 files can't be split across separate compactions.
func expandOverlappingL0(v *manifest.Version, inputs CompactionInputs) (CompactionInputs, bool) {
	for {
		smallest, largest := manifest.KeyRange(v.Comparer, inputs.Files, nil)
		grown := v.Overlaps(0, smallest.UserKey, largest.UserKey)
		if len(grown) == len(inputs.Files) {
			break
		}
		inputs.Files = grown
	}
	if manifest.AnyBeingCompacted(inputs.Files) {
		return inputs, false
	}
	return inputs, true
}

// setupOtherInputs expands the chosen start-level file(s) into the full
// compaction by including every file at outputLevel whose range overlaps
// the start level's key span (spec §4.4.6, "SetupOtherInputs").
func setupOtherInputs(v *manifest.Version, startInputs CompactionInputs, outputLevel int) (CompactionInputs, bool) {
	smallest, largest := manifest.KeyRange(v.Comparer, startInputs.Files, nil)
	outFiles := v.Overlaps(outputLevel, smallest.UserKey, largest.UserKey)
	if manifest.AnyBeingCompacted(outFiles) {
		return CompactionInputs{}, false
	}
	return CompactionInputs{Level: outputLevel, Files: outFiles}, true
}

// PickDeleteTriggered reclaims space held by a file an external collector
// flagged MarkedForCompaction — high tombstone density, typically — even
// though it wouldn't otherwise trip a size- or ratio-based trigger (spec
// §4.4.6).
//
// With a single level, every file from the first marked one through the
// oldest (L0 is ordered newest-first) is folded together, mirroring the size-amp policy's goal of
// space reclamation. With more than one level, the picker instead behaves
// like a leveled compaction: one marked file is expanded against the next
// non-empty level above it.
func PickDeleteTriggered(v *manifest.Version, inProgress *InProgressCompactions, o *Options) *CompactionDescriptor {
	var inputs []CompactionInputs
	var outputLevel int

	if v.NumLevels() == 1 {
		files := v.LevelFiles(0)
		var start CompactionInputs
		start.Level = 0
		compact := false
		for _, f := range files {
			if f.MarkedForCompaction {
				compact = true
			}
			if compact {
				start.Files = append(start.Files, f)
			}
		}
		if len(start.Files) <= 1 {
			return nil
		}
		inputs = append(inputs, start)
		outputLevel = 0
	} else {
		startLevel, marked, ok := pickFileMarkedForCompaction(v)
		if !ok {
			return nil
		}
		startInputs := CompactionInputs{Level: startLevel, Files: []*manifest.FileMetadata{marked}}

		outputLevel = startLevel + 1
		for ; outputLevel < v.NumLevels(); outputLevel++ {
			if v.NumLevelFiles(outputLevel) != 0 {
				break
			}
		}
		if outputLevel == v.NumLevels() {
			if startLevel != 0 {
				// All higher levels are empty: this would degrade into a
				// trivial move, which doesn't reclaim any space.
				return nil
			}
			outputLevel = v.NumLevels() - 1
		}
		if o.AllowIngestBehind && outputLevel == v.NumLevels()-1 {
			outputLevel--
		}

		if outputLevel != 0 {
			if startLevel == 0 {
				var ok bool
				startInputs, ok = expandOverlappingL0(v, startInputs)
				if !ok {
					return nil
				}
			}
			outputInputs, ok := setupOtherInputs(v, startInputs, outputLevel)
			if !ok {
				return nil
			}
			inputs = append(inputs, startInputs)
			if len(outputInputs.Files) > 0 {
				inputs = append(inputs, outputInputs)
			}
			if inProgress.FilesRangeOverlapWithCompaction(inputs, outputLevel) {
				return nil
			}
		} else {
			inputs = append(inputs, startInputs)
		}
	}

	var estimatedTotal uint64
	for _, f := range v.LevelFiles(outputLevel) {
		estimatedTotal += f.Size
	}
	pathID := PathForSize(o.Paths, estimatedTotal, o.SizeRatio)

	purpose := manifest.PurposeEssence
	maxSubcompactions := 0
	if o.EnableLazyCompaction && outputLevel != 0 {
		purpose = manifest.PurposeMap
		maxSubcompactions = 1
	}

	return &CompactionDescriptor{
		Inputs:             inputs,
		OutputLevel:        outputLevel,
		OutputPathID:       pathID,
		TargetFileSize:     o.TargetFileSize(maxInt(outputLevel, 1)),
		MaxCompactionBytes: ^uint64(0),
		CompressionEnabled: true,
		MaxSubcompactions:  maxSubcompactions,
		Purpose:            purpose,
		Reason:             ReasonFilesMarkedForCompaction,
		ManualCompaction:   true,
	}
}
