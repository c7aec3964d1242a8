// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "github.com/70data/terarkdb/internal/base"

// StopStyle controls how PickSortedRunOld's ratio-mode accumulator decides
// to stop extending its candidate window.
type StopStyle int

// The two accumulation styles SortedRunOld supports.
const (
	// StopStyleTotalSize accumulates the sum of every picked run's size.
	StopStyleTotalSize StopStyle = iota
	// StopStyleSimilarSize only compares against the most recently picked
	// run's size, and additionally rejects a next run that is far smaller
	// than the accumulator.
	StopStyleSimilarSize
)

// PathOptions describes one configured storage path and its target
// capacity, in the order PathPlanner should prefer them.
type PathOptions struct {
	TargetSize uint64
}

// Options bundles every tunable the picker consults. It corresponds to the
// "universal options" block of spec §6 plus the ambient pieces (comparer,
// logger, per-level target sizes) every policy needs to run.
type Options struct {
	Comparer base.Compare
	Logger   base.Logger

	// NumLevels is the number of levels in every snapshot the picker will
	// be handed.
	NumLevels int

	// Level0FileNumCompactionTrigger is the number of L0 sorted runs that
	// triggers an automatic pick attempt.
	Level0FileNumCompactionTrigger int

	// SizeRatio (percent) admits a next run into a ratio-mode SortedRunOld
	// window, and is also used by PathPlanner.
	SizeRatio int
	// MinMergeWidth and MaxMergeWidth bound the number of runs SortedRunOld
	// may select. MinMergeWidth is raised to 2 when smaller; a zero
	// MaxMergeWidth defaults to 1<<30, and other values are used as given.
	MinMergeWidth int
	MaxMergeWidth int

	// MaxSizeAmplificationPercent is the SizeAmp threshold.
	MaxSizeAmplificationPercent uint64

	// CompressionSizePercent >= 0 compresses only the tail younger than
	// that percentage of total bytes; < 0 always compresses.
	CompressionSizePercent int

	StopStyle StopStyle

	// AllowTrivialMove enables TrivialMove. It does not enable any overlap
	// check: no policy calls Nonoverlapping, which is a standalone helper.
	AllowTrivialMove bool
	// EnableLazyCompaction switches the SizeAmp trigger path onto the
	// RatioGrouper/SortedRunLazy path and engages CompositePlanner.
	EnableLazyCompaction bool
	// AllowIngestBehind reserves the last level: it is never chosen as an
	// output level.
	AllowIngestBehind bool

	// MaxSubcompactions bounds how many output ranges CompositePlanner and
	// RangePlanner may produce for a single descriptor.
	MaxSubcompactions int

	// MaxCompactionBytes bounds a single RangePlanner sub-range's size
	// before it is split into another range.
	MaxCompactionBytes uint64

	// WriteBufferSize scales raw run sizes down into RatioGrouper's input
	// units (spec §4.4.3: r[i] = size / WriteBufferSize).
	WriteBufferSize uint64

	// Paths lists the configured storage paths, in PathPlanner preference
	// order.
	Paths []PathOptions

	// TargetFileSize returns the target output sstable size for a given
	// output level. Supplied by the caller (options parser, out of scope
	// per spec §6); if nil, defaults to 2MiB at level 0, doubling with each
	// deeper level.
	TargetFileSize func(level int) uint64

	// TableProperties is the read-only collaborator CompositePlanner uses
	// to estimate read amplification (spec §6). May be nil, in which case
	// CompositePlanner never fires (mirrors "table_cache_ != nullptr").
	TableProperties TablePropertiesCache

	// MapElementIterator constructs the index iterator CompositePlanner and
	// RangePlanner read map-sst ranges through. Required whenever
	// TableProperties is set or manual range compactions are used.
	MapElementIterator MapElementIteratorFactory
}

// EnsureDefaults fills in zero-valued fields with sane defaults, mirroring
// the teacher's Options.EnsureDefaults pattern.
func (o *Options) EnsureDefaults() *Options {
	if o.Comparer == nil {
		o.Comparer = base.DefaultCompare
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	if o.NumLevels == 0 {
		o.NumLevels = 7
	}
	if o.Level0FileNumCompactionTrigger == 0 {
		o.Level0FileNumCompactionTrigger = 4
	}
	if o.SizeRatio == 0 {
		o.SizeRatio = 1
	}
	if o.MinMergeWidth < 2 {
		o.MinMergeWidth = 2
	}
	if o.MaxMergeWidth == 0 {
		o.MaxMergeWidth = 1 << 30
	}
	if o.MaxSizeAmplificationPercent == 0 {
		o.MaxSizeAmplificationPercent = 200
	}
	if o.MaxSubcompactions == 0 {
		o.MaxSubcompactions = 1
	}
	if o.WriteBufferSize == 0 {
		o.WriteBufferSize = 4 << 20
	}
	if o.MaxCompactionBytes == 0 {
		o.MaxCompactionBytes = 25 * (2 << 20)
	}
	if len(o.Paths) == 0 {
		o.Paths = []PathOptions{{TargetSize: 1 << 62}}
	}
	if o.TargetFileSize == nil {
		o.TargetFileSize = func(level int) uint64 {
			size := uint64(2 << 20)
			for i := 0; i < level; i++ {
				size *= 2
			}
			return size
		}
	}
	return o
}

// lastLevel returns the deepest level index, honoring AllowIngestBehind's
// reservation of the true last level.
func (o *Options) lastLevel() int {
	last := o.NumLevels - 1
	if o.AllowIngestBehind {
		last--
	}
	return last
}
