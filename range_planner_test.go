// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/70data/terarkdb/internal/manifest"
)

func TestPickRangeCompactionNoFilesBeingCompactIsNoop(t *testing.T) {
	v := newTestVersion(2)
	addFile(v, 1, compositeMapFile(1, 10, "a", "z"))
	o := (&Options{}).EnsureDefaults()

	d, conflict, err := PickRangeCompaction(v, 1, nil, nil, nil, o)
	require.NoError(t, err)
	require.False(t, conflict)
	require.Nil(t, d)
}

func TestPickRangeCompactionReportsConflictWhenAlreadyCompacting(t *testing.T) {
	v := newTestVersion(2)
	f := compositeMapFile(1, 10, "a", "z")
	f.BeingCompacted = true
	addFile(v, 1, f)
	o := (&Options{}).EnsureDefaults()

	d, conflict, err := PickRangeCompaction(v, 1, nil, nil, map[uint64]bool{5: true}, o)
	require.NoError(t, err)
	require.True(t, conflict)
	require.Nil(t, d)
}

func TestPickRangeCompactionL0MultiFileRebuilds(t *testing.T) {
	v := newTestVersion(2)
	addFile(v, 0, compositeMapFile(1, 10, "a", "m"))
	addFile(v, 0, compositeMapFile(2, 10, "n", "z"))
	o := (&Options{}).EnsureDefaults()

	d, conflict, err := PickRangeCompaction(v, 0, nil, nil, map[uint64]bool{5: true}, o)
	require.NoError(t, err)
	require.False(t, conflict)
	require.NotNil(t, d)
	require.Equal(t, manifest.PurposeMap, d.Purpose)
	require.Equal(t, 0, d.OutputLevel)
	require.Equal(t, 1, d.MaxSubcompactions)
	require.Len(t, d.AllFiles(), 2)
}

func TestPickRangeCompactionSingleFileProducesRangeOverTouchedLink(t *testing.T) {
	v := newTestVersion(2)
	mapFile := compositeMapFile(1, 10, "a", "m")
	addFile(v, 1, mapFile)

	elems := []MapElement{
		{
			SmallestKey:     ik("a"),
			LargestKey:      ik("m"),
			IncludeSmallest: true,
			IncludeLargest:  true,
			Link:            []LinkEntry{{FileNumber: 5, Size: 10}},
		},
	}
	o := (&Options{MapElementIterator: &fakeMapIteratorFactory{elems: elems}}).EnsureDefaults()

	d, conflict, err := PickRangeCompaction(v, 1, nil, nil, map[uint64]bool{5: true}, o)
	require.NoError(t, err)
	require.False(t, conflict)
	require.NotNil(t, d)
	require.Equal(t, manifest.PurposeEssence, d.Purpose)
	require.Equal(t, ReasonManualCompaction, d.Reason)
	require.True(t, d.ManualCompaction)
	require.True(t, d.PartialCompaction)
	require.Len(t, d.InputRanges, 1)
	require.Equal(t, []byte("a"), d.InputRanges[0].Start)
	require.Equal(t, []byte("m"), d.InputRanges[0].Limit)
}

func TestPickRangeCompactionSkipsElementsNotTouchingTargetFiles(t *testing.T) {
	v := newTestVersion(2)
	mapFile := compositeMapFile(1, 10, "a", "m")
	addFile(v, 1, mapFile)

	elems := []MapElement{
		{SmallestKey: ik("a"), LargestKey: ik("m"), Link: []LinkEntry{{FileNumber: 9, Size: 10}}},
	}
	o := (&Options{MapElementIterator: &fakeMapIteratorFactory{elems: elems}}).EnsureDefaults()

	// filesBeingCompact names a file not referenced by any element's link set.
	d, conflict, err := PickRangeCompaction(v, 1, nil, nil, map[uint64]bool{5: true}, o)
	require.NoError(t, err)
	require.False(t, conflict)
	require.Nil(t, d)
}

func TestPickFullRangeCompactionNoNonemptyLevel(t *testing.T) {
	v := newTestVersion(3)
	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	d, conflict := PickFullRangeCompaction(v, o, inProgress)
	require.Nil(t, d)
	require.False(t, conflict)
}

func TestPickFullRangeCompactionSpansFromShallowestNonemptyLevel(t *testing.T) {
	v := newTestVersion(4)
	addFile(v, 1, essenceFile(1, 10, "a", "b"))
	addFile(v, 2, essenceFile(2, 10, "c", "d"))
	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)

	d, conflict := PickFullRangeCompaction(v, o, inProgress)
	require.False(t, conflict)
	require.NotNil(t, d)
	require.Equal(t, manifest.PurposeEssence, d.Purpose)
	require.True(t, d.ManualCompaction)
	require.Equal(t, o.lastLevel(), d.OutputLevel)
	require.Equal(t, 1, d.StartLevel())
	require.Len(t, d.AllFiles(), 2)
}

func TestPickFullRangeCompactionConflictsOnCompactingInput(t *testing.T) {
	v := newTestVersion(4)
	f := essenceFile(1, 10, "a", "b")
	f.BeingCompacted = true
	addFile(v, 1, f)
	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)

	d, conflict := PickFullRangeCompaction(v, o, inProgress)
	require.Nil(t, d)
	require.True(t, conflict)
}

func TestPickFullRangeCompactionConflictsWhenL0AlreadyOutput(t *testing.T) {
	v := newTestVersion(4)
	addFile(v, 0, essenceFile(1, 10, "a", "b"))
	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	inProgress.RegisterCompaction(&CompactionDescriptor{OutputLevel: 0})

	d, conflict := PickFullRangeCompaction(v, o, inProgress)
	require.Nil(t, d)
	require.True(t, conflict)
}

func TestPickFullRangeCompactionConflictsAtIngestBehindAdjustedOutputLevel(t *testing.T) {
	v := newTestVersion(4)
	addFile(v, 1, essenceFile(1, 10, "a", "b"))
	o := (&Options{AllowIngestBehind: true, NumLevels: 4}).EnsureDefaults()
	require.Equal(t, 2, o.lastLevel())
	inProgress := NewInProgressCompactions(o.Comparer)
	inProgress.RegisterCompaction(&CompactionDescriptor{
		Inputs:      []CompactionInputs{{Level: 2, Files: []*manifest.FileMetadata{essenceFile(99, 10, "a", "b")}}},
		OutputLevel: 2,
	})

	d, conflict := PickFullRangeCompaction(v, o, inProgress)
	require.Nil(t, d)
	require.True(t, conflict)
}

func TestPickFullRangeCompactionLazyModeUsesMapPurpose(t *testing.T) {
	v := newTestVersion(4)
	addFile(v, 1, essenceFile(1, 10, "a", "b"))
	o := (&Options{EnableLazyCompaction: true}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)

	d, conflict := PickFullRangeCompaction(v, o, inProgress)
	require.False(t, conflict)
	require.NotNil(t, d)
	require.Equal(t, manifest.PurposeMap, d.Purpose)
	require.Equal(t, 1, d.MaxSubcompactions)
}
