// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/70data/terarkdb/internal/manifest"
)

func logContains(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func TestNeedsCompactionTriggersOnL0Count(t *testing.T) {
	v := newTestVersion(4)
	for i := uint64(0); i < 4; i++ {
		addFile(v, 0, essenceFile(i+1, 10, "a", "a"))
	}
	o := (&Options{Level0FileNumCompactionTrigger: 4, MaxSizeAmplificationPercent: 1000000}).EnsureDefaults()
	require.True(t, NeedsCompaction(v, BuildSortedRuns(v), o))
}

func TestNeedsCompactionTriggersOnMarkedFile(t *testing.T) {
	v := newTestVersion(1)
	f := essenceFile(1, 10, "a", "a")
	f.MarkedForCompaction = true
	addFile(v, 0, f)
	o := (&Options{Level0FileNumCompactionTrigger: 100, MaxSizeAmplificationPercent: 1000000}).EnsureDefaults()
	require.True(t, NeedsCompaction(v, BuildSortedRuns(v), o))
}

func TestNeedsCompactionFalseWhenQuiescent(t *testing.T) {
	v := newTestVersion(1)
	addFile(v, 0, essenceFile(1, 10, "a", "a"))
	o := (&Options{Level0FileNumCompactionTrigger: 100, MaxSizeAmplificationPercent: 1000000}).EnsureDefaults()
	require.False(t, NeedsCompaction(v, BuildSortedRuns(v), o))
}

func TestPickCompactionNothingToDoLogsAndReturnsNil(t *testing.T) {
	v := newTestVersion(4)
	addFile(v, 0, essenceFile(1, 10, "a", "a"))
	addFile(v, 0, essenceFile(2, 10, "b", "b"))
	o := (&Options{Level0FileNumCompactionTrigger: 4, MaxSizeAmplificationPercent: 1000000}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	log := &LogBuffer{}

	d, err := PickCompaction(v, o, inProgress, log)
	require.NoError(t, err)
	require.Nil(t, d)
	require.True(t, logContains(log.Lines(), "nothing to do"))
}

func TestPickCompactionSizeAmpWinsOverOtherPolicies(t *testing.T) {
	v := newTestVersion(4)
	addFile(v, 0, essenceFile(1, 100, "a", "a"))
	addFile(v, 1, essenceFile(2, 100, "a", "a"))
	addFile(v, 2, essenceFile(3, 100, "a", "a"))
	addFile(v, 3, essenceFile(4, 50, "a", "a"))
	o := (&Options{Level0FileNumCompactionTrigger: 100, MaxSizeAmplificationPercent: 200}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	log := &LogBuffer{}

	d, err := PickCompaction(v, o, inProgress, log)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, ReasonSizeAmplification, d.Reason)
	require.True(t, logContains(log.Lines(), "size amp"))
}

func TestPickCompactionFallsBackToSortedRunRatioMode(t *testing.T) {
	v := newTestVersion(4)
	for i := uint64(0); i < 4; i++ {
		addFile(v, 0, essenceFile(i+1, 100, "a", "a"))
	}
	o := (&Options{
		Level0FileNumCompactionTrigger: 4,
		MaxSizeAmplificationPercent:    1000000,
		CompressionSizePercent:         -1,
	}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	log := &LogBuffer{}

	d, err := PickCompaction(v, o, inProgress, log)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, ReasonSizeRatio, d.Reason)
	require.True(t, logContains(log.Lines(), "size ratio"))
}

func TestPickCompactionFallsBackToDeleteTriggeredWhenNothingElseFires(t *testing.T) {
	v := newTestVersion(1)
	addFile(v, 0, essenceFile(1, 10, "a", "a"))
	marked := essenceFile(2, 10, "b", "b")
	marked.MarkedForCompaction = true
	addFile(v, 0, marked)
	addFile(v, 0, essenceFile(3, 10, "c", "c"))

	o := (&Options{Level0FileNumCompactionTrigger: 100, MaxSizeAmplificationPercent: 1000000}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	log := &LogBuffer{}

	d, err := PickCompaction(v, o, inProgress, log)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, ReasonFilesMarkedForCompaction, d.Reason)
	require.True(t, logContains(log.Lines(), "delete triggered"))
}

func TestPickCompactionRegistersWinningDescriptorAsInProgress(t *testing.T) {
	v := newTestVersion(4)
	addFile(v, 0, essenceFile(1, 100, "a", "a"))
	addFile(v, 1, essenceFile(2, 100, "a", "a"))
	addFile(v, 2, essenceFile(3, 100, "a", "a"))
	addFile(v, 3, essenceFile(4, 50, "a", "a"))
	o := (&Options{Level0FileNumCompactionTrigger: 100, MaxSizeAmplificationPercent: 200}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)

	d, err := PickCompaction(v, o, inProgress, nil)
	require.NoError(t, err)
	require.NotNil(t, d)
	for _, f := range d.AllFiles() {
		require.True(t, f.BeingCompacted)
	}
	require.Contains(t, inProgress.Descriptors(), d)
}

func TestPickCompactionLazyModePicksSortedRunReduction(t *testing.T) {
	v := newTestVersion(2)
	for i := uint64(0); i < 4; i++ {
		addFile(v, 0, essenceFile(i+1, 4<<20, "a", "a"))
	}
	o := (&Options{
		EnableLazyCompaction:           true,
		Level0FileNumCompactionTrigger: 1,
		NumLevels:                      2,
		WriteBufferSize:                4 << 20,
	}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	log := &LogBuffer{}

	d, err := PickCompaction(v, o, inProgress, log)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, manifest.PurposeMap, d.Purpose)
	require.True(t, logContains(log.Lines(), "lazy compaction"))
}
