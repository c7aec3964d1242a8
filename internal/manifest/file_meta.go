// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package manifest models the read-only, point-in-time view of the LSM that
// the compaction picker reasons over: per-level file metadata and the
// file-number-indexed dependency graph that map/link ssts hang off of.
package manifest

import (
	"fmt"

	"github.com/70data/terarkdb/internal/base"
)

// Purpose tags what role a file plays in the dependency graph. An essence
// sst holds real point/range-delete data. A map or link sst instead holds
// an index of ranges that resolve to other files (its Dependents).
type Purpose uint8

// The purposes a file may carry.
const (
	PurposeEssence Purpose = iota
	PurposeMap
	PurposeLink
)

func (p Purpose) String() string {
	switch p {
	case PurposeEssence:
		return "essence"
	case PurposeMap:
		return "map"
	case PurposeLink:
		return "link"
	default:
		return "unknown"
	}
}

// FileMetadata is the immutable (for the duration of a pick) descriptor of
// one on-disk file. The picker never mutates these fields directly except
// for BeingCompacted, which is flipped under the controller's lock by
// RegisterCompaction/UnregisterCompaction.
type FileMetadata struct {
	// FileNum uniquely identifies the file for the lifetime of the database.
	FileNum uint64
	// PathID is the index into the configured storage paths this file
	// currently lives on.
	PathID uint32
	// Size is the on-disk byte size of just this file (not transitively
	// following Dependents).
	Size uint64
	// CompensatedSize inflates Size by an estimate of the dead (tombstoned)
	// bytes the file carries, so that policies which compare sizes weigh
	// space that compaction will actually reclaim.
	CompensatedSize uint64

	Smallest base.InternalKey
	Largest  base.InternalKey

	SmallestSeqNum base.SeqNum
	LargestSeqNum  base.SeqNum

	// BeingCompacted is true while the file is an input to a live
	// CompactionDescriptor. Set/cleared only under the controller's lock.
	BeingCompacted bool

	// MarkedForCompaction is set externally (e.g. by a tombstone-density
	// collector) to request the file be reclaimed even though it doesn't
	// otherwise trip a size- or ratio-based trigger.
	MarkedForCompaction bool

	// Purpose distinguishes essence ssts from map/link ssts.
	Purpose Purpose
	// Dependents lists the file numbers a map or link sst's index resolves
	// into. Empty for essence ssts.
	Dependents []uint64
}

func (f *FileMetadata) String() string {
	return fmt.Sprintf("%06d(purpose=%s,size=%d)", f.FileNum, f.Purpose, f.Size)
}

// DependentFiles indexes every known FileMetadata by file number, including
// files that are no longer present in any level but are still referenced as
// a dependent of some map/link sst (until that reference itself is
// rewritten away). The picker only ever reads it.
type DependentFiles map[uint64]*FileMetadata

// TransitiveSize follows purpose-tagged dependents recursively and sums
// their sizes. A missing dependent contributes zero and is reported via
// onMissing rather than failing the computation (spec §7, MissingDependent:
// the version snapshot is authoritative, so a dependency gap means the
// referenced file was already reclaimed).
func (d DependentFiles) TransitiveSize(f *FileMetadata, onMissing func(fileNum uint64)) uint64 {
	return d.transitiveSize(f.FileNum, f, onMissing, make(map[uint64]bool))
}

// TransitiveSizeOf computes the transitive size of the file with the given
// number, looking it up in the index first.
func (d DependentFiles) TransitiveSizeOf(fileNum uint64, onMissing func(fileNum uint64)) uint64 {
	return d.transitiveSize(fileNum, nil, onMissing, make(map[uint64]bool))
}

func (d DependentFiles) transitiveSize(
	fileNum uint64, f *FileMetadata, onMissing func(uint64), visiting map[uint64]bool,
) uint64 {
	if f == nil {
		var ok bool
		f, ok = d[fileNum]
		if !ok {
			if onMissing != nil {
				onMissing(fileNum)
			}
			return 0
		}
	}
	if visiting[f.FileNum] {
		// A file may only depend on files created earlier, so this can't
		// happen structurally; guard anyway rather than looping forever.
		return 0
	}
	size := f.Size
	if f.Purpose != PurposeEssence {
		visiting[f.FileNum] = true
		for _, dep := range f.Dependents {
			size += d.transitiveSize(dep, nil, onMissing, visiting)
		}
		delete(visiting, f.FileNum)
	}
	return size
}
