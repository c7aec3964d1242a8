// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeleteTriggeredSingleLevelFoldsFromFirstMarked(t *testing.T) {
	v := newTestVersion(1)
	f1 := essenceFile(1, 10, "a", "a")
	f2 := essenceFile(2, 10, "b", "b")
	f2.MarkedForCompaction = true
	f3 := essenceFile(3, 10, "c", "c")
	addFile(v, 0, f1)
	addFile(v, 0, f2)
	addFile(v, 0, f3)

	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)

	d := PickDeleteTriggered(v, inProgress, o)
	require.NotNil(t, d)
	require.Equal(t, ReasonFilesMarkedForCompaction, d.Reason)
	require.True(t, d.ManualCompaction)
	require.Equal(t, 0, d.OutputLevel)
	require.Len(t, d.AllFiles(), 2)
}

func TestDeleteTriggeredSingleLevelNoMarkedFile(t *testing.T) {
	v := newTestVersion(1)
	addFile(v, 0, essenceFile(1, 10, "a", "a"))
	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	require.Nil(t, PickDeleteTriggered(v, inProgress, o))
}

func TestDeleteTriggeredMultiLevelExpandsIntoNextLevel(t *testing.T) {
	v := newTestVersion(3)
	marked := essenceFile(1, 10, "b", "b")
	marked.MarkedForCompaction = true
	addFile(v, 1, marked)
	addFile(v, 2, essenceFile(2, 10, "a", "c"))

	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)

	d := PickDeleteTriggered(v, inProgress, o)
	require.NotNil(t, d)
	require.Equal(t, 1, d.StartLevel())
	require.Equal(t, 2, d.OutputLevel)
	require.Len(t, d.AllFiles(), 2)
}

func TestDeleteTriggeredPrefersDeepestMarkedLevel(t *testing.T) {
	v := newTestVersion(4)
	shallow := essenceFile(1, 10, "b", "b")
	shallow.MarkedForCompaction = true
	addFile(v, 1, shallow)
	deep := essenceFile(2, 10, "m", "m")
	deep.MarkedForCompaction = true
	addFile(v, 2, deep)
	addFile(v, 3, essenceFile(3, 10, "a", "z"))

	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)

	d := PickDeleteTriggered(v, inProgress, o)
	require.NotNil(t, d)
	require.Equal(t, 2, d.StartLevel())
	require.Equal(t, 3, d.OutputLevel)
}

func TestDeleteTriggeredMultiLevelNoRoomAboveNonzeroStartReturnsNil(t *testing.T) {
	v := newTestVersion(3)
	marked := essenceFile(1, 10, "b", "b")
	marked.MarkedForCompaction = true
	addFile(v, 1, marked)
	// Level 2 is empty: expanding upward would degrade into a trivial
	// move, which doesn't reclaim space.

	o := (&Options{}).EnsureDefaults()
	inProgress := NewInProgressCompactions(o.Comparer)
	require.Nil(t, PickDeleteTriggered(v, inProgress, o))
}
