// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"fmt"
	"log"
)

// Logger defines an interface for writing log messages. The picker never
// owns a concrete logging sink (that's the caller's collaborator, see
// spec §6); it only ever logs through this interface.
type Logger interface {
	Infof(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger struct{}

// Infof implements Logger.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
}

// NoopLogger discards every message. Useful in tests that don't want to
// assert on log output.
type NoopLogger struct{}

// Infof implements Logger.
func (NoopLogger) Infof(string, ...interface{}) {}
