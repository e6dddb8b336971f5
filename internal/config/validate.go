package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks configuration correctness.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	if cfg.Device.VendorID == 0 || cfg.Device.ProductID == 0 {
		return fmt.Errorf("device: vendor_id and product_id are required")
	}
	if cfg.Device.AltSetting < -1 || cfg.Device.AltSetting > 255 {
		return fmt.Errorf("device: alt_setting %d out of range", cfg.Device.AltSetting)
	}

	if cfg.Firmware.Path == "" {
		return fmt.Errorf("firmware: path is required")
	}
	if cfg.Firmware.Extension != "" && !strings.HasPrefix(cfg.Firmware.Extension, ".") {
		return fmt.Errorf("firmware: extension %q must start with a dot", cfg.Firmware.Extension)
	}

	t := cfg.Transfer
	if t.PollIntervalMs < 0 {
		return fmt.Errorf("transfer: poll_interval_ms must not be negative")
	}
	if t.StatusTimeoutMs <= 0 || t.CommandTimeoutMs <= 0 {
		return fmt.Errorf("transfer: timeouts must be positive")
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
