// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"github.com/cockroachdb/redact"

	"github.com/70data/terarkdb/internal/manifest"
)

// anyMarkedForCompaction reports whether any file anywhere in the snapshot
// carries MarkedForCompaction, the second of NeedsCompaction's three
// triggers.
func anyMarkedForCompaction(v *manifest.Version) bool {
	_, _, ok := pickFileMarkedForCompaction(v)
	return ok
}

// NeedsCompaction is the cheap poll the engine runs before paying for a
// full PickCompaction: it fires on any of the three independent triggers
// PickCompaction itself ultimately consults (spec §2's "polls
// NeedsCompaction").
func NeedsCompaction(v *manifest.Version, runs []SortedRun, o *Options) bool {
	if len(runs) >= o.Level0FileNumCompactionTrigger {
		return true
	}
	if anyMarkedForCompaction(v) {
		return true
	}
	return HasSpaceAmplification(runs, o)
}

// PickCompaction runs PolicyEngine's sub-pickers in the fixed priority
// spec §4.4 establishes, falling back to CompositePlanner and then
// DeleteTriggered, and registers whichever descriptor a policy produces
// (spec §2, §5). It returns nil if no policy fires. log may be nil; when
// set, each step's outcome is buffered onto it exactly as the original
// threads a LogBuffer through every picker entry point, so the caller can
// flush the narrative of a single pick's decision after releasing the
// compaction-picking lock.
func PickCompaction(v *manifest.Version, o *Options, inProgress *InProgressCompactions, log *LogBuffer) (*CompactionDescriptor, error) {
	runs := BuildSortedRuns(v)
	if len(runs) == 0 {
		return nil, nil
	}

	hasSpaceAmp := HasSpaceAmplification(runs, o)
	trigger := hasSpaceAmp || len(runs) >= o.Level0FileNumCompactionTrigger
	if !trigger && !anyMarkedForCompaction(v) {
		if log != nil {
			log.Infof("Universal: nothing to do")
		}
		return nil, nil
	}

	var d *CompactionDescriptor
	if trigger {
		if o.EnableLazyCompaction {
			if d = pickLazyTriggered(v, runs, o, inProgress); d != nil && log != nil {
				log.Infof("Universal: compacting for lazy compaction, reason=%s", redact.Safe(d.Reason))
			}
		} else if d = PickSizeAmp(v, runs, o); d != nil {
			if log != nil {
				log.Infof("Universal: compacting for size amp, reason=%s", redact.Safe(d.Reason))
			}
		} else if d = PickSortedRunOld(v, runs, o, uint64(o.SizeRatio), UnboundedMergeWidth); d != nil {
			if log != nil {
				log.Infof("Universal: compacting for size ratio, reason=%s", redact.Safe(d.Reason))
			}
		} else {
			numNotCompacted := 0
			for _, sr := range runs {
				if !sr.BeingCompacted {
					numNotCompacted++
				}
			}
			if numNotCompacted > o.Level0FileNumCompactionTrigger {
				numFiles := numNotCompacted - o.Level0FileNumCompactionTrigger + 1
				if d = PickSortedRunOld(v, runs, o, UnboundedRatio, numFiles); d != nil && log != nil {
					log.Infof("Universal: compacting for file num -- %d, reason=%s", numFiles, redact.Safe(d.Reason))
				}
			}
		}
	}

	if d == nil && o.TableProperties != nil {
		composite, err := PickCompositeCompaction(v, runs, o, inProgress)
		if err != nil {
			return nil, err
		}
		d = composite
	}

	if d == nil {
		if d = PickDeleteTriggered(v, inProgress, o); d != nil && log != nil {
			log.Infof("Universal: delete triggered compaction, reason=%s", redact.Safe(d.Reason))
		}
	}

	if d == nil {
		return nil, nil
	}
	inProgress.RegisterCompaction(d)
	return d, nil
}

// pickLazyTriggered is the lazy-mode branch of PickCompaction's first
// priority step: TrivialMove first, then — unless a map-sst rebuild is
// already in flight or TrivialMove just started one — SortedRunLazy.
//
// reduce_sorted_run_target starts at Level0FileNumCompactionTrigger +
// NumLevels - 1. When a table-properties cache is wired and every run is a
// single perfect-candidate map file (no level still needs a rebuild), the
// original narrows that target further using summed per-file read
// amplification; any level still split across multiple files instead
// forces the target unbounded, skipping this pick entirely and deferring
// consolidation to CompositePlanner's map-rebuild path.
func pickLazyTriggered(v *manifest.Version, runs []SortedRun, o *Options, inProgress *InProgressCompactions) *CompactionDescriptor {
	if d := PickTrivialMove(v, inProgress, o); d != nil {
		return d
	}
	if inProgress.HasOutputPurpose(manifest.PurposeMap) {
		return nil
	}

	target := o.Level0FileNumCompactionTrigger + o.NumLevels - 1
	if o.TableProperties != nil && len(runs) > 1 && len(runs) <= target {
		var levelReadAmpCount uint64
		needsRebuild := false
		for _, sr := range runs {
			var f *manifest.FileMetadata
			if sr.Level > 0 {
				files := v.LevelFiles(sr.Level)
				if len(files) > 1 {
					needsRebuild = true
					break
				}
				if len(files) == 0 {
					continue
				}
				f = files[0]
			} else {
				if sr.File.Purpose != manifest.PurposeMap {
					continue
				}
				f = sr.File
			}
			if amp, ok := o.TableProperties.ReadAmplification(f); ok && amp > 1 {
				levelReadAmpCount += amp
			}
		}
		if needsRebuild {
			target = UnboundedMergeWidth
		} else if levelReadAmpCount < uint64(target) {
			target = maxInt(o.Level0FileNumCompactionTrigger, len(runs)-1)
		}
	}

	if len(runs) <= target {
		return nil
	}
	return PickSortedRunLazy(v, runs, o, target)
}
