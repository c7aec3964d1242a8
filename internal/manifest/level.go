// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package manifest

import "github.com/70data/terarkdb/internal/base"

// LevelMetadata holds the ordered files of a single level. For level 0,
// files are ordered newest-first and may overlap in key range. For levels
// >= 1, files are disjoint and ordered by smallest key.
type LevelMetadata struct {
	Files []*FileMetadata
}

// TotalSize sums the (uncompensated) on-disk size of every file in the
// level. It does not follow map/link dependents.
func (lm LevelMetadata) TotalSize() uint64 {
	var n uint64
	for _, f := range lm.Files {
		n += f.Size
	}
	return n
}

// TotalCompensatedSize sums the compensated size of every file in the level.
func (lm LevelMetadata) TotalCompensatedSize() uint64 {
	var n uint64
	for _, f := range lm.Files {
		n += f.CompensatedSize
	}
	return n
}

// Empty reports whether the level has no files.
func (lm LevelMetadata) Empty() bool { return len(lm.Files) == 0 }

// Version is the read-only, point-in-time snapshot of the LSM that the
// picker is handed for a single pick. It must not be mutated during a pick.
type Version struct {
	Comparer base.Compare
	// Levels holds one LevelMetadata per level, indexed 0..NumLevels()-1.
	Levels []LevelMetadata
	// Dependents indexes every file, including ones no longer resident in
	// any level, by file number. Needed to resolve map/link dependents.
	Dependents DependentFiles
}

// NumLevels returns the number of levels in the snapshot.
func (v *Version) NumLevels() int { return len(v.Levels) }

// LevelFiles returns the files at the given level.
func (v *Version) LevelFiles(level int) []*FileMetadata {
	if level < 0 || level >= len(v.Levels) {
		return nil
	}
	return v.Levels[level].Files
}

// NumLevelFiles returns the number of files at the given level.
func (v *Version) NumLevelFiles(level int) int { return len(v.LevelFiles(level)) }

// KeyRange returns the smallest and largest internal keys spanned by files,
// across both inputs (the second may be nil).
func KeyRange(cmp base.Compare, a, b []*FileMetadata) (smallest, largest base.InternalKey) {
	first := true
	consider := func(f *FileMetadata) {
		if first {
			smallest, largest = f.Smallest, f.Largest
			first = false
			return
		}
		if f.Smallest.Compare(cmp, smallest) < 0 {
			smallest = f.Smallest
		}
		if f.Largest.Compare(cmp, largest) > 0 {
			largest = f.Largest
		}
	}
	for _, f := range a {
		consider(f)
	}
	for _, f := range b {
		consider(f)
	}
	return smallest, largest
}

// Overlaps returns the files at the given level whose user-key range
// intersects [smallest, largest]. For level 0 this is a linear scan since
// files may overlap arbitrarily; for higher levels the files are disjoint
// and sorted, but a linear scan is still used since the picker is not a
// hot path (spec §5: the picker never performs I/O and runs under a single
// exclusive lock, so raw throughput of this scan is not a design
// constraint).
func (v *Version) Overlaps(level int, smallest, largest []byte) []*FileMetadata {
	var out []*FileMetadata
	for _, f := range v.LevelFiles(level) {
		if v.Comparer(f.Largest.UserKey, smallest) < 0 || v.Comparer(f.Smallest.UserKey, largest) > 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// AnyBeingCompacted reports whether any file in files has BeingCompacted set.
func AnyBeingCompacted(files []*FileMetadata) bool {
	for _, f := range files {
		if f.BeingCompacted {
			return true
		}
	}
	return false
}
