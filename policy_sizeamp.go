// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "github.com/70data/terarkdb/internal/manifest"

// PickSizeAmp compacts every sorted run from the shallowest non-compacting
// one through the oldest (deepest) one into the output level once the
// combined size of the runs above the oldest grows disproportionate to
// that oldest run: candidate-size / earliest-run-size * 100 must reach
// MaxSizeAmplificationPercent (spec §4.4.1). This overrides every other
// policy's width/ratio bounds, since it runs first in PickCompaction's
// priority order.
func PickSizeAmp(v *manifest.Version, runs []SortedRun, o *Options) *CompactionDescriptor {
	startIndex, _, ok := sizeAmplificationCandidate(runs, o)
	if !ok {
		return nil
	}

	var estimatedTotal uint64
	for i := startIndex; i < len(runs); i++ {
		estimatedTotal += runs[i].Size
	}
	pathID := PathForSize(o.Paths, estimatedTotal, o.SizeRatio)

	startLevel := runs[startIndex].Level
	outputLevel := o.lastLevel()
	numInputLevels := outputLevel - startLevel + 1
	if numInputLevels < 1 {
		numInputLevels = 1
	}
	inputs := make([]CompactionInputs, numInputLevels)
	for i := range inputs {
		inputs[i].Level = startLevel + i
	}
	for i := startIndex; i < len(runs); i++ {
		sr := runs[i]
		idx := sr.Level - startLevel
		if sr.Level == 0 {
			inputs[idx].Files = append(inputs[idx].Files, sr.File)
		} else {
			inputs[idx].Files = append(inputs[idx].Files, v.LevelFiles(sr.Level)...)
		}
	}

	return &CompactionDescriptor{
		Inputs:             inputs,
		OutputLevel:        outputLevel,
		OutputPathID:       pathID,
		TargetFileSize:     o.TargetFileSize(outputLevel),
		MaxCompactionBytes: ^uint64(0),
		CompressionEnabled: true,
		MaxSubcompactions:  o.MaxSubcompactions,
		Purpose:            manifest.PurposeEssence,
		Reason:             ReasonSizeAmplification,
	}
}

// sizeAmplificationCandidate finds the shallowest non-compacting run and
// reports whether the compensated size of it and every run after it
// (excluding the oldest run) has grown past MaxSizeAmplificationPercent of the
// oldest run's size. Shared between PickSizeAmp and HasSpaceAmplification
// so the trigger condition and the pick agree by construction.
func sizeAmplificationCandidate(runs []SortedRun, o *Options) (startIndex int, candidateSize uint64, ok bool) {
	if len(runs) < 2 || runs[len(runs)-1].BeingCompacted {
		return 0, 0, false
	}
	startIndex = -1
	for i := 0; i < len(runs)-1; i++ {
		if !runs[i].BeingCompacted {
			startIndex = i
			break
		}
	}
	if startIndex < 0 {
		return 0, 0, false
	}
	candidateCount := 0
	for i := startIndex; i < len(runs)-1; i++ {
		if runs[i].BeingCompacted {
			return 0, 0, false
		}
		candidateSize += runs[i].CompensatedSize
		candidateCount++
	}
	if candidateCount == 0 {
		return 0, 0, false
	}
	earliestSize := runs[len(runs)-1].Size
	if candidateSize*100 < o.MaxSizeAmplificationPercent*earliestSize {
		return 0, 0, false
	}
	return startIndex, candidateSize, true
}

// HasSpaceAmplification reports whether the sorted-run set currently
// trips the size-amplification trigger (spec §4.4 step 1), independent of
// whether PickSizeAmp will actually be the policy that fires for it.
func HasSpaceAmplification(runs []SortedRun, o *Options) bool {
	_, _, ok := sizeAmplificationCandidate(runs, o)
	return ok
}
