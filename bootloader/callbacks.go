package bootloader

import "time"

// Progress phases.
const (
	PhaseErasing     = "erasing"
	PhaseProgramming = "programming"
	PhaseDetaching   = "detaching"
	PhaseComplete    = "complete"
)

// Progress contains information about the operation in progress.
// Passed to ProgressCallback during erase and programming.
type Progress struct {
	// Phase is one of the Phase* constants
	Phase string

	// CurrentBlock is the number of blocks written so far
	CurrentBlock int

	// TotalBlocks is the number of blocks in the image
	TotalBlocks int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesWritten is the total number of bytes sent so far, padding included
	BytesWritten int

	// ElapsedTime is the time elapsed since the operation started
	ElapsedTime time.Duration
}

// ProgressCallback is called during programming to report progress.
// Implementations should return quickly; the transfer waits for them.
//
// Example:
//
//	prog := bootloader.New(dev, dev.Identity(),
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Block %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentBlock, p.TotalBlocks)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the programmer.
// This allows integration with any logging framework; internal/logging
// provides a zerolog implementation.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Warn logs a warning with optional key-value pairs
	Warn(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
