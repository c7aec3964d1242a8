// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"github.com/70data/terarkdb/internal/base"
	"github.com/70data/terarkdb/internal/manifest"
)

// LinkEntry names one dependent file a MapElement's key range resolves
// through, and how many bytes of that element's range the file
// contributes.
type LinkEntry struct {
	FileNumber uint64
	Size       uint64
}

// MapElement is one index entry of a map-sst: a user-key range and the
// ordered list of dependent files whose data backs it (spec §7, "Map-SST").
type MapElement struct {
	SmallestKey, LargestKey         base.InternalKey
	IncludeSmallest, IncludeLargest bool
	Link                            []LinkEntry
}

// MapElementIterator streams a map-sst's index in key order. Positioning
// methods return the element now pointed at, or nil if the iterator is
// exhausted; a non-nil error means the entry at the current position
// failed to decode (spec §7, CorruptMapElement) and the stream cannot be
// trusted past that point.
//
// The iterator borrows the snapshot it was constructed from; callers that
// capture a key from a returned *MapElement must copy the bytes, since the
// iterator may reuse the backing array on the next call (spec §9,
// "Iterator lifetimes").
type MapElementIterator interface {
	First() (*MapElement, error)
	Next() (*MapElement, error)
	Prev() (*MapElement, error)
	SeekGE(key []byte) (*MapElement, error)
	Close() error
}

// MapElementIteratorFactory constructs the index iterator CompositePlanner
// and RangePlanner read a map-sst's ranges through (spec §6). The file
// merger/writer and the on-disk index format itself are out of scope; this
// is purely the read-side contract the decision engine needs.
type MapElementIteratorFactory interface {
	NewIterator(file *manifest.FileMetadata) (MapElementIterator, error)
}
