// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "github.com/70data/terarkdb/internal/manifest"

// SortedRun is the unit the picker reasons over: one L0 file, or one entire
// non-empty level >= 1 (spec §3, §4.1).
type SortedRun struct {
	Level int
	// File is set iff Level == 0; it identifies which L0 file this run is.
	File *manifest.FileMetadata

	// Size is the transitive size (following map/link dependents) of the
	// run's file(s).
	Size uint64
	// CompensatedSize sums the run's files' own compensated sizes; it does
	// not follow dependents.
	CompensatedSize uint64

	BeingCompacted bool

	// WaitReduce is set by SortedRunLazy on every run in a multi-member
	// RatioGrouper group, marking it as already destined for a future
	// size-reducing compaction; CompositePlanner skips such runs.
	WaitReduce bool
}

// String names the run the way the original log messages do: a file number
// for L0, a bare level for L1+.
func (sr SortedRun) String() string {
	if sr.Level == 0 {
		return sr.File.String()
	}
	return levelName(sr.Level)
}

func levelName(level int) string {
	digits := [10]byte{}
	i := len(digits)
	n := level
	if n == 0 {
		return "level 0"
	}
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return "level " + string(digits[i:])
}

// BuildSortedRuns constructs the SortedRunModel view of a snapshot: one run
// per L0 file (preserving L0's newest-first arrival order), followed by one
// run per non-empty level >= 1 (spec §4.1). A level whose files'
// compensated sizes sum to zero yields no run.
func BuildSortedRuns(v *manifest.Version) []SortedRun {
	var runs []SortedRun
	for _, f := range v.LevelFiles(0) {
		runs = append(runs, SortedRun{
			Level:           0,
			File:            f,
			Size:            v.Dependents.TransitiveSize(f, nil),
			CompensatedSize: f.CompensatedSize,
			BeingCompacted:  f.BeingCompacted,
		})
	}
	for level := 1; level < v.NumLevels(); level++ {
		files := v.LevelFiles(level)
		if len(files) == 0 {
			continue
		}
		var totalSize, totalCompensated uint64
		beingCompacted := files[0].BeingCompacted
		for _, f := range files {
			totalCompensated += f.CompensatedSize
			totalSize += v.Dependents.TransitiveSize(f, nil)
			if f.BeingCompacted {
				beingCompacted = true
			}
		}
		if totalCompensated == 0 {
			continue
		}
		runs = append(runs, SortedRun{
			Level:           level,
			Size:            totalSize,
			CompensatedSize: totalCompensated,
			BeingCompacted:  beingCompacted,
		})
	}
	return runs
}
