// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "github.com/70data/terarkdb/internal/manifest"

// TablePropertiesCache resolves a file's stored read-amplification
// property, used only to pick which level's map-sst CompositePlanner
// should rewrite next (spec §4.5, §6). The cache's own storage and
// population are out of scope for the decision engine; a nil
// TablePropertiesCache in Options disables CompositePlanner entirely,
// mirroring the teacher's "table_cache_ != nullptr" gate.
type TablePropertiesCache interface {
	// ReadAmplification returns the file's self-reported read
	// amplification (live-key reads per logical key) and whether the
	// property was found.
	ReadAmplification(file *manifest.FileMetadata) (amp uint64, ok bool)
}
