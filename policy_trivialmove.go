// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "github.com/70data/terarkdb/internal/manifest"

// PickTrivialMove relocates an entire level's files down to a deeper,
// empty level without merging any keys (spec §4.4.5). It scans downward
// from the bottom for the deepest empty level not already the output of a
// live compaction, then scans upward from there for the shallowest
// non-empty, non-compacting level above it; if every level down to L1 is
// empty, it falls back to moving L0's single oldest file.
func PickTrivialMove(v *manifest.Version, inProgress *InProgressCompactions, o *Options) *CompactionDescriptor {
	if !o.AllowTrivialMove {
		return nil
	}
	outputLevel := o.NumLevels - 1
	if o.AllowIngestBehind {
		outputLevel--
	}
	startLevel := 0
	for {
		for ; outputLevel >= 1; outputLevel-- {
			if len(v.LevelFiles(outputLevel)) == 0 && !inProgress.HasOutputLevel(outputLevel) {
				break
			}
		}
		if outputLevel < 1 {
			return nil
		}
		foundStartLevel := false
		for startLevel = outputLevel - 1; startLevel > 0; startLevel-- {
			if inProgress.HasOutputLevel(startLevel) {
				break
			}
			if len(v.LevelFiles(startLevel)) != 0 {
				foundStartLevel = true
				break
			}
		}
		if startLevel == 0 {
			break
		}
		if foundStartLevel && !manifest.AnyBeingCompacted(v.LevelFiles(startLevel)) {
			break
		}
		outputLevel = startLevel - 1
	}

	var files []*manifest.FileMetadata
	var pathID uint32
	if startLevel == 0 {
		l0 := v.LevelFiles(0)
		if len(l0) == 0 || l0[len(l0)-1].BeingCompacted {
			return nil
		}
		oldest := l0[len(l0)-1]
		files = []*manifest.FileMetadata{oldest}
		pathID = oldest.PathID
	} else {
		files = v.LevelFiles(startLevel)
		if manifest.AnyBeingCompacted(files) {
			return nil
		}
		pathID = files[0].PathID
	}

	return &CompactionDescriptor{
		Inputs:            []CompactionInputs{{Level: startLevel, Files: files}},
		OutputLevel:       outputLevel,
		OutputPathID:      pathID,
		MaxSubcompactions: o.MaxSubcompactions,
		Purpose:           manifest.PurposeEssence,
		Reason:            ReasonTrivialMoveLevel,
	}
}
