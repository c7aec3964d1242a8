// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "github.com/70data/terarkdb/internal/manifest"

// PickSortedRunLazy is the lazy-mode counterpart to SortedRunOld: instead
// of a size-ratio window, it asks RatioGrouper to fit the whole sorted-run
// stack into reduceSortedRunTarget geometric groups, then compacts the
// first multi-member group that isn't already being compacted (spec
// §4.4.4). Runs is mutated in place: every run belonging to any
// multi-member group — not just the chosen one — is marked WaitReduce, so
// CompositePlanner skips it until this reduction has actually run.
//
// If reduceSortedRunTarget is <= 0, it defaults to len(runs) (no
// reduction target was computed, so RatioGrouper degenerates to one group
// per run and nothing fires).
func PickSortedRunLazy(v *manifest.Version, runs []SortedRun, o *Options, reduceSortedRunTarget int) *CompactionDescriptor {
	if len(runs) == 0 {
		return nil
	}
	if reduceSortedRunTarget <= 0 {
		reduceSortedRunTarget = len(runs)
	}

	ratios := make([]float64, len(runs))
	baseSize := float64(o.WriteBufferSize)
	for i, sr := range runs {
		ratios[i] = float64(sr.Size) / baseSize
	}
	groups, _ := RatioGroup(ratios, reduceSortedRunTarget)

	startIndex, endIndex := 0, 0
	for _, g := range groups {
		beingCompacted := false
		if g.Count > 1 {
			for i := g.Start; i < g.Start+g.Count; i++ {
				if runs[i].BeingCompacted {
					beingCompacted = true
				}
				runs[i].WaitReduce = true
			}
		}
		if endIndex != 0 {
			continue
		}
		if g.Count == 1 || beingCompacted {
			continue
		}
		startIndex = g.Start
		endIndex = g.Start + g.Count
	}
	if endIndex == 0 {
		return nil
	}

	enableCompression := true
	if o.CompressionSizePercent >= 0 {
		var totalSize uint64
		for _, sr := range runs {
			totalSize += sr.CompensatedSize
		}
		var olderSize uint64
		for i := len(runs) - 1; i >= endIndex; i-- {
			olderSize += runs[i].Size
			if olderSize*100 >= totalSize*uint64(o.CompressionSizePercent) {
				enableCompression = false
				break
			}
		}
	}

	var estimatedTotal uint64
	for i := startIndex; i < endIndex; i++ {
		estimatedTotal += runs[i].Size
	}
	pathID := PathForSize(o.Paths, estimatedTotal, o.SizeRatio)

	startLevel := runs[startIndex].Level
	var outputLevel int
	switch {
	case endIndex == len(runs):
		outputLevel = o.NumLevels - 1
	case runs[endIndex].Level == 0:
		outputLevel = 0
	default:
		outputLevel = runs[endIndex].Level - 1
	}
	if o.AllowIngestBehind && outputLevel == o.NumLevels-1 {
		outputLevel--
	}

	inputs := make([]CompactionInputs, endIndex-startIndex)
	for i := range inputs {
		inputs[i].Level = startLevel + i
	}
	for i := startIndex; i < endIndex; i++ {
		sr := runs[i]
		idx := sr.Level - startLevel
		if sr.Level == 0 {
			inputs[idx].Files = append(inputs[idx].Files, sr.File)
		} else {
			inputs[idx].Files = v.LevelFiles(sr.Level)
		}
	}

	return &CompactionDescriptor{
		Inputs:             inputs,
		OutputLevel:        outputLevel,
		OutputPathID:       pathID,
		TargetFileSize:     o.TargetFileSize(maxInt(startLevel, 1)),
		MaxCompactionBytes: ^uint64(0),
		CompressionEnabled: enableCompression,
		MaxSubcompactions:  1,
		Purpose:            manifest.PurposeMap,
		Reason:             ReasonSortedRunNum,
	}
}
