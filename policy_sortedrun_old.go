// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"math"

	"github.com/70data/terarkdb/internal/manifest"
)

// Sentinels PickCompaction passes for the bound PickSortedRunOld isn't
// exercising on a given call: an unbounded merge width for the ratio-mode
// call, an unbounded ratio for the count-forcing call.
const (
	UnboundedMergeWidth = math.MaxInt32
	UnboundedRatio      = math.MaxUint32
)

// PickSortedRunOld looks for a contiguous window of sorted runs, starting
// somewhere in the middle of the stack, whose sizes admit each other
// within a size ratio (or, with maxFilesToCompact set, simply the
// shallowest maxFilesToCompact runs) — spec §4.4.2. It is called twice
// from PickCompaction: once in ratio mode (ratio = Options.SizeRatio,
// maxFilesToCompact = unbounded) and once in count-forcing mode (ratio
// unbounded, maxFilesToCompact = the excess over the L0 trigger).
func PickSortedRunOld(v *manifest.Version, runs []SortedRun, o *Options, ratio uint64, maxFilesToCompact int) *CompactionDescriptor {
	if len(runs) == 0 {
		return nil
	}
	minMergeWidth := o.MinMergeWidth
	if minMergeWidth < 2 {
		minMergeWidth = 2
	}
	maxFiles := o.MaxMergeWidth
	if maxFilesToCompact < maxFiles {
		maxFiles = maxFilesToCompact
	}

	startIndex := -1
	candidateCount := 0
	for loop := 0; loop < len(runs); loop++ {
		first := -1
		for ; loop < len(runs); loop++ {
			if !runs[loop].BeingCompacted {
				first = loop
				break
			}
		}
		if first < 0 {
			break
		}
		loop = first
		var candidateSize uint64 = runs[loop].CompensatedSize
		count := 1
		for i := loop + 1; count < maxFiles && i < len(runs); i++ {
			succ := runs[i]
			if succ.BeingCompacted {
				break
			}
			sz := float64(candidateSize) * (100.0 + float64(ratio)) / 100.0
			if sz < float64(succ.Size) {
				break
			}
			if o.StopStyle == StopStyleSimilarSize {
				sz = float64(succ.Size) * (100.0 + float64(ratio)) / 100.0
				if sz < float64(candidateSize) {
					break
				}
				candidateSize = succ.CompensatedSize
			} else {
				candidateSize += succ.CompensatedSize
			}
			count++
		}
		if count >= minMergeWidth {
			startIndex = loop
			candidateCount = count
			break
		}
	}
	if startIndex < 0 || candidateCount <= 1 {
		return nil
	}

	firstIndexAfter := startIndex + candidateCount

	enableCompression := true
	if o.CompressionSizePercent >= 0 {
		var totalSize uint64
		for _, sr := range runs {
			totalSize += sr.CompensatedSize
		}
		var olderSize uint64
		for i := len(runs) - 1; i >= firstIndexAfter; i-- {
			olderSize += runs[i].Size
			if olderSize*100 >= totalSize*uint64(o.CompressionSizePercent) {
				enableCompression = false
				break
			}
		}
	}

	var estimatedTotal uint64
	for i := 0; i < firstIndexAfter; i++ {
		estimatedTotal += runs[i].Size
	}
	pathID := PathForSize(o.Paths, estimatedTotal, o.SizeRatio)

	startLevel := runs[startIndex].Level
	var outputLevel int
	switch {
	case firstIndexAfter == len(runs):
		outputLevel = o.NumLevels - 1
	case runs[firstIndexAfter].Level == 0:
		outputLevel = 0
	default:
		outputLevel = runs[firstIndexAfter].Level - 1
	}
	if o.AllowIngestBehind && outputLevel == o.NumLevels-1 {
		outputLevel--
	}

	numInputLevels := outputLevel - startLevel + 1
	if numInputLevels < 1 {
		numInputLevels = 1
	}
	inputs := make([]CompactionInputs, numInputLevels)
	for i := range inputs {
		inputs[i].Level = startLevel + i
	}
	for i := startIndex; i < firstIndexAfter; i++ {
		sr := runs[i]
		idx := sr.Level - startLevel
		if sr.Level == 0 {
			inputs[idx].Files = append(inputs[idx].Files, sr.File)
		} else {
			inputs[idx].Files = append(inputs[idx].Files, v.LevelFiles(sr.Level)...)
		}
	}

	reason := ReasonSortedRunNum
	if maxFilesToCompact == UnboundedMergeWidth {
		reason = ReasonSizeRatio
	}

	return &CompactionDescriptor{
		Inputs:             inputs,
		OutputLevel:        outputLevel,
		OutputPathID:       pathID,
		TargetFileSize:     o.TargetFileSize(maxInt(outputLevel, 1)),
		MaxCompactionBytes: ^uint64(0),
		CompressionEnabled: enableCompression,
		MaxSubcompactions:  o.MaxSubcompactions,
		Purpose:            manifest.PurposeEssence,
		Reason:             reason,
	}
}
