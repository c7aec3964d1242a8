// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"github.com/70data/terarkdb/internal/base"
	"github.com/70data/terarkdb/internal/manifest"
)

// Reason records which policy produced a CompactionDescriptor, mirroring
// RocksDB/TerarkDB's CompactionReason enum for the universal picker.
type Reason int

// The reasons the picker may assign to a descriptor.
const (
	ReasonUnknown Reason = iota
	ReasonSizeAmplification
	ReasonSizeRatio
	ReasonSortedRunNum
	ReasonTrivialMoveLevel
	ReasonFilesMarkedForCompaction
	ReasonCompositeAmplification
	ReasonManualCompaction
)

func (r Reason) String() string {
	switch r {
	case ReasonSizeAmplification:
		return "size-amplification"
	case ReasonSizeRatio:
		return "size-ratio"
	case ReasonSortedRunNum:
		return "sorted-run-num"
	case ReasonTrivialMoveLevel:
		return "trivial-move-level"
	case ReasonFilesMarkedForCompaction:
		return "files-marked-for-compaction"
	case ReasonCompositeAmplification:
		return "composite-amplification"
	case ReasonManualCompaction:
		return "manual-compaction"
	default:
		return "unknown"
	}
}

// Range is a user-key interval, with independent inclusive/exclusive flags
// on each end, used to describe a partial-compaction's output bounds.
type Range struct {
	Start, Limit               []byte
	IncludeStart, IncludeLimit bool
}

// CompactionInputs is the set of files drawn from a single level.
type CompactionInputs struct {
	Level int
	Files []*manifest.FileMetadata
}

// CompactionDescriptor is the fully-specified output of a pick: which files
// to merge, into which level, under what policy. The picker itself performs
// no I/O; a descriptor is a plan, handed off to the scheduler and merger
// collaborators (spec §6).
type CompactionDescriptor struct {
	Inputs             []CompactionInputs
	OutputLevel        int
	OutputPathID       uint32
	TargetFileSize     uint64
	MaxCompactionBytes uint64
	CompressionEnabled bool
	MaxSubcompactions  int
	Purpose            manifest.Purpose
	Reason             Reason
	Score              float64
	ManualCompaction   bool
	PartialCompaction  bool
	InputRanges        []Range
}

// StartLevel returns the shallowest input level, or -1 if the descriptor has
// no inputs.
func (d *CompactionDescriptor) StartLevel() int {
	if len(d.Inputs) == 0 {
		return -1
	}
	return d.Inputs[0].Level
}

// AllFiles flattens every input file across every input level.
func (d *CompactionDescriptor) AllFiles() []*manifest.FileMetadata {
	var out []*manifest.FileMetadata
	for _, in := range d.Inputs {
		out = append(out, in.Files...)
	}
	return out
}

// KeyRange returns the smallest and largest internal keys spanned by the
// descriptor's inputs.
func (d *CompactionDescriptor) KeyRange(cmp base.Compare) (smallest, largest base.InternalKey) {
	return manifest.KeyRange(cmp, d.AllFiles(), nil)
}

// levelsConsecutive reports whether d.Inputs names consecutive levels,
// invariant 2 of spec §8.
func (d *CompactionDescriptor) levelsConsecutive() bool {
	for i := 1; i < len(d.Inputs); i++ {
		if d.Inputs[i].Level != d.Inputs[i-1].Level+1 {
			return false
		}
	}
	return true
}

// InProgressCompactions tracks every live CompactionDescriptor under the
// controller's lock (spec §5). It is the only owner of process-wide
// compaction state; the picker itself is handed a *InProgressCompactions by
// the caller rather than reaching for a package-level global (spec §9).
type InProgressCompactions struct {
	cmp   base.Compare
	descs []*CompactionDescriptor
}

// NewInProgressCompactions constructs an empty registry.
func NewInProgressCompactions(cmp base.Compare) *InProgressCompactions {
	return &InProgressCompactions{cmp: cmp}
}

// Descriptors returns every currently-registered descriptor.
func (s *InProgressCompactions) Descriptors() []*CompactionDescriptor {
	return s.descs
}

// HasOutputPurpose reports whether any live compaction carries the given
// output purpose (used by the lazy size-amp trigger to detect a pending map
// rebuild before it starts another one).
func (s *InProgressCompactions) HasOutputPurpose(purpose manifest.Purpose) bool {
	for _, d := range s.descs {
		if d.Purpose == purpose {
			return true
		}
	}
	return false
}

// HasOutputLevel reports whether any live compaction writes to the given
// output level.
func (s *InProgressCompactions) HasOutputLevel(level int) bool {
	for _, d := range s.descs {
		if d.OutputLevel == level {
			return true
		}
	}
	return false
}

// RegisterCompaction records d as live and marks every one of its input
// files BeingCompacted, atomically from the caller's point of view (spec
// §5: both happen under the single lock the caller already holds).
func (s *InProgressCompactions) RegisterCompaction(d *CompactionDescriptor) {
	for _, f := range d.AllFiles() {
		f.BeingCompacted = true
	}
	s.descs = append(s.descs, d)
}

// UnregisterCompaction clears BeingCompacted on d's inputs and removes it
// from the live set. Callers that discard a returned descriptor without
// running it must call this to avoid leaking the being-compacted mark
// (spec §5, Cancellation).
func (s *InProgressCompactions) UnregisterCompaction(d *CompactionDescriptor) {
	for _, f := range d.AllFiles() {
		f.BeingCompacted = false
	}
	for i, cur := range s.descs {
		if cur == d {
			s.descs = append(s.descs[:i], s.descs[i+1:]...)
			return
		}
	}
}

// FilesRangeOverlapWithCompaction reports whether a prospective descriptor
// spanning inputs, outputting to outputLevel, would overlap the output key
// range of any live compaction that also outputs to outputLevel. Manual
// compactions use this to detect a conflict (spec §4.7, §5).
func (s *InProgressCompactions) FilesRangeOverlapWithCompaction(
	inputs []CompactionInputs, outputLevel int,
) bool {
	var files []*manifest.FileMetadata
	for _, in := range inputs {
		files = append(files, in.Files...)
	}
	if len(files) == 0 {
		return false
	}
	smallest, largest := manifest.KeyRange(s.cmp, files, nil)
	for _, d := range s.descs {
		if d.OutputLevel != outputLevel {
			continue
		}
		dSmallest, dLargest := d.KeyRange(s.cmp)
		if dSmallest.UserKey == nil {
			continue
		}
		if s.cmp(largest.UserKey, dSmallest.UserKey) < 0 || s.cmp(smallest.UserKey, dLargest.UserKey) > 0 {
			continue
		}
		return true
	}
	return false
}
