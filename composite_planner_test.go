// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/70data/terarkdb/internal/manifest"
)

func compositeMapFile(num uint64, size uint64, smallest, largest string) *manifest.FileMetadata {
	f := essenceFile(num, size, smallest, largest)
	f.Purpose = manifest.PurposeMap
	return f
}

type fakeTableProps map[uint64]uint64

func (f fakeTableProps) ReadAmplification(file *manifest.FileMetadata) (uint64, bool) {
	amp, ok := f[file.FileNum]
	return amp, ok
}

type fakeMapIterator struct {
	elems []MapElement
	pos   int
}

func (it *fakeMapIterator) First() (*MapElement, error) {
	if len(it.elems) == 0 {
		it.pos = -1
		return nil, nil
	}
	it.pos = 0
	return &it.elems[0], nil
}

func (it *fakeMapIterator) Next() (*MapElement, error) {
	it.pos++
	if it.pos >= len(it.elems) {
		it.pos = len(it.elems)
		return nil, nil
	}
	return &it.elems[it.pos], nil
}

func (it *fakeMapIterator) Prev() (*MapElement, error) {
	it.pos--
	if it.pos < 0 {
		it.pos = -1
		return nil, nil
	}
	return &it.elems[it.pos], nil
}

func (it *fakeMapIterator) SeekGE(key []byte) (*MapElement, error) {
	for i, e := range it.elems {
		if bytes.Compare(e.LargestKey.UserKey, key) >= 0 {
			it.pos = i
			return &it.elems[i], nil
		}
	}
	it.pos = len(it.elems)
	return nil, nil
}

func (it *fakeMapIterator) Close() error { return nil }

type fakeMapIteratorFactory struct{ elems []MapElement }

func (f *fakeMapIteratorFactory) NewIterator(file *manifest.FileMetadata) (MapElementIterator, error) {
	return &fakeMapIterator{elems: f.elems}, nil
}

func TestCompositePlannerRebuildsLevelSplitAcrossFiles(t *testing.T) {
	v := newTestVersion(3)
	addFile(v, 1, compositeMapFile(1, 10, "a", "b"))
	addFile(v, 1, compositeMapFile(2, 10, "c", "d"))

	o := (&Options{TableProperties: fakeTableProps{}}).EnsureDefaults()
	runs := BuildSortedRuns(v)
	inProgress := NewInProgressCompactions(o.Comparer)

	d, err := PickCompositeCompaction(v, runs, o, inProgress)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, manifest.PurposeMap, d.Purpose)
	require.Equal(t, 1, d.OutputLevel)
	require.Len(t, d.AllFiles(), 2)
}

func TestSelectCompositeTargetPicksHighestReadAmpLevel(t *testing.T) {
	v := newTestVersion(3)
	addFile(v, 1, compositeMapFile(1, 10, "a", "b"))
	addFile(v, 2, compositeMapFile(2, 10, "c", "d"))

	o := (&Options{TableProperties: fakeTableProps{1: 5, 2: 50}}).EnsureDefaults()
	target, found := selectCompositeTarget(v, BuildSortedRuns(v), o)
	require.True(t, found)
	require.Equal(t, 2, target.level)
	require.False(t, target.rebuild)
}

func TestSelectCompositeTargetConsidersL0MapFile(t *testing.T) {
	v := newTestVersion(2)
	addFile(v, 0, compositeMapFile(1, 10, "a", "b"))

	o := (&Options{TableProperties: fakeTableProps{1: 7}}).EnsureDefaults()
	target, found := selectCompositeTarget(v, BuildSortedRuns(v), o)
	require.True(t, found)
	require.Equal(t, 0, target.level)
	require.False(t, target.rebuild)
	require.Equal(t, uint64(1), target.file.FileNum)
}

func TestCompositePlannerNoTablePropertiesNoPick(t *testing.T) {
	v := newTestVersion(3)
	addFile(v, 1, compositeMapFile(1, 10, "a", "b"))
	o := (&Options{}).EnsureDefaults()
	runs := BuildSortedRuns(v)
	inProgress := NewInProgressCompactions(o.Comparer)

	d, err := PickCompositeCompaction(v, runs, o, inProgress)
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestCompositePlannerLinkPassFiresOnFragmentedLinkSet(t *testing.T) {
	v := newTestVersion(2)
	mapFile := compositeMapFile(10, 5, "a", "z")
	addFile(v, 1, mapFile)

	elems := []MapElement{
		{
			SmallestKey:     ik("a"),
			LargestKey:      ik("m"),
			IncludeSmallest: true,
			IncludeLargest:  false,
			Link: []LinkEntry{
				{FileNumber: 1, Size: 30},
				{FileNumber: 2, Size: 30},
				{FileNumber: 3, Size: 40},
			},
		},
	}
	factory := &fakeMapIteratorFactory{elems: elems}
	o := (&Options{
		TableProperties:    fakeTableProps{10: 1},
		MapElementIterator: factory,
	}).EnsureDefaults()
	runs := BuildSortedRuns(v)
	inProgress := NewInProgressCompactions(o.Comparer)

	d, err := PickCompositeCompaction(v, runs, o, inProgress)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, manifest.PurposeLink, d.Purpose)
	require.Equal(t, ReasonCompositeAmplification, d.Reason)
	require.Len(t, d.InputRanges, 1)
	require.Equal(t, []byte("a"), d.InputRanges[0].Start)
	require.Equal(t, []byte("z"), d.InputRanges[0].Limit)
}
