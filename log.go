// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import (
	"fmt"

	"github.com/70data/terarkdb/internal/base"
)

// LogBuffer accumulates formatted messages while a pick runs under the
// controller's exclusive lock (spec §5), and only touches the real Logger
// once FlushTo is called outside that critical section — the same
// deferred-logging shape the original passes a LogBuffer* through every
// picker entry point for.
type LogBuffer struct {
	lines []string
}

// Infof appends a formatted line to the buffer.
func (b *LogBuffer) Infof(format string, args ...interface{}) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

// FlushTo writes every buffered line to logger, in order, and clears the
// buffer.
func (b *LogBuffer) FlushTo(logger base.Logger) {
	for _, line := range b.lines {
		logger.Infof("%s", line)
	}
	b.lines = b.lines[:0]
}

// Lines returns the currently buffered messages without flushing them,
// primarily for tests asserting on picker decisions.
func (b *LogBuffer) Lines() []string {
	return b.lines
}
