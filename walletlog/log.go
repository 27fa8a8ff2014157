// Package walletlog wires up the btclog subsystem loggers used across the
// wallet core, rotating their output to disk the way the teacher's
// mining/randomx package wires btclog for its own subsystem (spec.md
// ambient stack: logging).
package walletlog

import (
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Backend is the shared btclog backend every subsystem logger is created
// from. It defaults to writing nowhere until InitLogRotator or
// InitStdoutBackend is called.
var Backend = btclog.NewBackend(io.Discard)

// logRotator holds the rotator once InitLogRotator has been called, so
// Close can flush and release it.
var logRotator *rotator.Rotator

// rotatorThreshold is the per-file size, in bytes, at which the rotator
// rolls to a new file.
const rotatorThreshold = 10 * 1024 * 1024

// InitLogRotator creates a rotating log file at logPath (with up to
// maxRolls previous versions kept) and points Backend at both that file
// and stdout.
func InitLogRotator(logPath string, maxRolls int) error {
	r, err := rotator.New(logPath, rotatorThreshold, false, maxRolls)
	if err != nil {
		return err
	}
	logRotator = r
	Backend = btclog.NewBackend(io.MultiWriter(os.Stdout, r))
	return nil
}

// InitStdoutBackend points Backend at stdout only, for tests and
// short-lived CLI invocations that don't want a log file.
func InitStdoutBackend() {
	Backend = btclog.NewBackend(os.Stdout)
}

// Close flushes and releases the log rotator, if one was created.
func Close() {
	if logRotator != nil {
		logRotator.Close()
		logRotator = nil
	}
}

// NewSubsystemLogger creates a btclog.Logger tagged with subsystem,
// defaulting to info level like the teacher's per-package loggers.
func NewSubsystemLogger(subsystem string) btclog.Logger {
	l := Backend.Logger(subsystem)
	l.SetLevel(btclog.LevelInfo)
	return l
}
