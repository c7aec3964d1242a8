// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "fmt"

// SeqNum is a sequence number defining the relative ordering of writes to
// the same user key. Larger sequence numbers are more recent.
type SeqNum uint64

// SeqNumMax is the largest representable sequence number.
const SeqNumMax SeqNum = 1<<64 - 1

// InternalKeyKind enumerates the small set of key kinds the picker needs to
// reason about range deletions and tombstone density; it is not a full
// encoding of every on-disk record kind.
type InternalKeyKind uint8

// The kinds of internal keys the picker distinguishes.
const (
	InternalKeyKindSet InternalKeyKind = iota
	InternalKeyKindDelete
	InternalKeyKindRangeDelete
	InternalKeyKindMerge
	InternalKeyKindMax
)

func (k InternalKeyKind) String() string {
	switch k {
	case InternalKeyKindSet:
		return "SET"
	case InternalKeyKindDelete:
		return "DEL"
	case InternalKeyKindRangeDelete:
		return "RANGEDEL"
	case InternalKeyKindMerge:
		return "MERGE"
	default:
		return "UNKNOWN"
	}
}

// InternalKey is a user key tagged with a sequence number, giving a total
// order across all versions of all keys stored in the LSM.
type InternalKey struct {
	UserKey []byte
	SeqNum  SeqNum
	Kind    InternalKeyKind
}

// MakeInternalKey constructs an internal key from its parts.
func MakeInternalKey(userKey []byte, seqNum SeqNum, kind InternalKeyKind) InternalKey {
	return InternalKey{UserKey: userKey, SeqNum: seqNum, Kind: kind}
}

// Compare orders two internal keys: primarily by user key (ascending),
// and for equal user keys by sequence number (descending, so the newest
// version of a key sorts first).
func (k InternalKey) Compare(cmp Compare, other InternalKey) int {
	if c := cmp(k.UserKey, other.UserKey); c != 0 {
		return c
	}
	switch {
	case k.SeqNum > other.SeqNum:
		return -1
	case k.SeqNum < other.SeqNum:
		return 1
	default:
		return 0
	}
}

func (k InternalKey) String() string {
	return fmt.Sprintf("%s#%d,%s", k.UserKey, k.SeqNum, k.Kind)
}

// Valid reports whether k decodes to a well-formed internal key.
func (k InternalKey) Valid() bool {
	return k.Kind < InternalKeyKindMax
}
