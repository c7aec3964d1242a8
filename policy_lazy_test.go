// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/70data/terarkdb/internal/manifest"
)

func fourEqualL0Runs(writeBufferSize uint64) (*manifest.Version, []SortedRun) {
	v := newTestVersion(4)
	for i := uint64(0); i < 4; i++ {
		addFile(v, 0, essenceFile(i+1, writeBufferSize, "a", "a"))
	}
	return v, BuildSortedRuns(v)
}

func TestSortedRunLazyMarksWaitReduceAcrossMultiMemberGroups(t *testing.T) {
	v, runs := fourEqualL0Runs(4 << 20)
	o := (&Options{WriteBufferSize: 4 << 20}).EnsureDefaults()

	d := PickSortedRunLazy(v, runs, o, 2)
	require.NotNil(t, d)
	require.Equal(t, manifest.PurposeMap, d.Purpose)
	require.Equal(t, ReasonSortedRunNum, d.Reason)
	// o.CompressionSizePercent defaults to 0, and the chosen group doesn't
	// span the whole run stack, so the first (and only) older-run
	// iteration trips the threshold immediately: compression is disabled
	// for this reduction.
	require.False(t, d.CompressionEnabled)

	waitReduceCount := 0
	for _, sr := range runs {
		if sr.WaitReduce {
			waitReduceCount++
		}
	}
	require.Greater(t, waitReduceCount, 0)
}

func TestSortedRunLazyCompressionEnabledWhenGroupSpansWholeStack(t *testing.T) {
	v, runs := fourEqualL0Runs(4 << 20)
	o := (&Options{WriteBufferSize: 4 << 20}).EnsureDefaults()

	// reduceSortedRunTarget=1 degenerates RatioGroup to a single group
	// spanning every run, so there's no older run left to trip the
	// compression-ratio check: it stays enabled regardless of
	// o.CompressionSizePercent.
	d := PickSortedRunLazy(v, runs, o, 1)
	require.NotNil(t, d)
	require.True(t, d.CompressionEnabled)
}

func TestSortedRunLazyDefaultsTargetToLenWhenNonPositive(t *testing.T) {
	v, runs := fourEqualL0Runs(4 << 20)
	o := (&Options{WriteBufferSize: 4 << 20}).EnsureDefaults()

	// reduceSortedRunTarget <= 0 degenerates to one group per run: no
	// multi-member group, so nothing fires.
	d := PickSortedRunLazy(v, runs, o, 0)
	require.Nil(t, d)
	for _, sr := range runs {
		require.False(t, sr.WaitReduce)
	}
}

func TestSortedRunLazyEmptyRuns(t *testing.T) {
	v := newTestVersion(1)
	o := (&Options{}).EnsureDefaults()
	require.Nil(t, PickSortedRunLazy(v, nil, o, 1))
}

func TestSortedRunLazySkipsGroupAlreadyCompacting(t *testing.T) {
	v, runs := fourEqualL0Runs(4 << 20)
	o := (&Options{WriteBufferSize: 4 << 20}).EnsureDefaults()
	// Mark every run compacting: even though RatioGroup may still form a
	// multi-member group, every candidate is disqualified.
	for i := range runs {
		runs[i].BeingCompacted = true
	}

	d := PickSortedRunLazy(v, runs, o, 2)
	require.Nil(t, d)
}
