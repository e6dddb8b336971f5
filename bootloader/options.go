package bootloader

import (
	"time"

	"github.com/umbrela/go-stm32dfu/protocol"
)

// Config holds the programmer configuration.
type Config struct {
	// ProgressCallback is called during programming to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// PollInterval is slept between iterations of the idle-wait loop.
	// Zero busy-polls, which is what the STM32 bootloader is tested with.
	PollInterval time.Duration

	// StatusTimeout bounds each GETSTATUS transfer
	StatusTimeout time.Duration

	// CommandTimeout bounds each DNLOAD and CLRSTATUS transfer
	CommandTimeout time.Duration

	// Interface is the DFU interface number sent in wIndex
	Interface uint16
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		PollInterval:   0,
		StatusTimeout:  protocol.DefaultStatusTimeout,
		CommandTimeout: protocol.DefaultCommandTimeout,
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithProgressCallback sets a callback function to track programming progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the programmer operations.
//
// Example:
//
//	prog := bootloader.New(dev, id, bootloader.WithLogger(logging.Adapt(log)))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithPollInterval sets a minimum sleep between idle-wait iterations.
// Default is 0 (busy-poll).
//
// Example:
//
//	prog := bootloader.New(dev, id, bootloader.WithPollInterval(time.Millisecond))
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval >= 0 {
			c.PollInterval = interval
		}
	}
}

// WithTimeout sets both the status and the command timeouts.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.StatusTimeout = timeout
			c.CommandTimeout = timeout
		}
	}
}

// WithStatusTimeout sets the GETSTATUS timeout. Default is 500ms.
func WithStatusTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.StatusTimeout = timeout
		}
	}
}

// WithCommandTimeout sets the DNLOAD and CLRSTATUS timeout. Default is 5s.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.CommandTimeout = timeout
		}
	}
}

// WithInterface sets the DFU interface number. Default is 0.
func WithInterface(iface uint16) Option {
	return func(c *Config) {
		c.Interface = iface
	}
}
