// Package config loads the stm32dfu YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Firmware FirmwareConfig `yaml:"firmware"`
	Transfer TransferConfig `yaml:"transfer"`
	Log      LogConfig      `yaml:"log"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	VendorID   HexID `yaml:"vendor_id"`
	ProductID  HexID `yaml:"product_id"`
	AltSetting int   `yaml:"alt_setting"` // -1 = pick the flash alt setting
}

// ---- FIRMWARE ----

type FirmwareConfig struct {
	// Path is a .dfu file or a directory to search
	Path      string `yaml:"path"`
	Extension string `yaml:"extension"`
}

// ---- TRANSFER ----

type TransferConfig struct {
	MassErase        bool `yaml:"mass_erase"`
	PollIntervalMs   int  `yaml:"poll_interval_ms"`
	StatusTimeoutMs  int  `yaml:"status_timeout_ms"`
	CommandTimeoutMs int  `yaml:"command_timeout_ms"`
}

func (t TransferConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMs) * time.Millisecond
}

func (t TransferConfig) StatusTimeout() time.Duration {
	return time.Duration(t.StatusTimeoutMs) * time.Millisecond
}

func (t TransferConfig) CommandTimeout() time.Duration {
	return time.Duration(t.CommandTimeoutMs) * time.Millisecond
}

// ---- LOG ----

type LogConfig struct {
	Level   string `yaml:"level"`
	NoColor bool   `yaml:"no_color"`
}

// HexID is a 16-bit USB identifier. In YAML it may be written as an
// integer or a string, in decimal or with a 0x prefix.
type HexID uint16

func (h *HexID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: USB ID must be a scalar", node.Line)
	}
	v, err := strconv.ParseUint(node.Value, 0, 16)
	if err != nil {
		return fmt.Errorf("line %d: invalid USB ID %q", node.Line, node.Value)
	}
	*h = HexID(v)
	return nil
}

func (h HexID) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

func (h HexID) String() string {
	return fmt.Sprintf("0x%04X", uint16(h))
}

// Default returns the configuration for an STM32 system bootloader with
// firmware taken from ~/Download.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			VendorID:   0x0483,
			ProductID:  0xDF11,
			AltSetting: -1,
		},
		Firmware: FirmwareConfig{
			Path:      "~/Download",
			Extension: ".dfu",
		},
		Transfer: TransferConfig{
			MassErase:        true,
			PollIntervalMs:   0,
			StatusTimeoutMs:  500,
			CommandTimeoutMs: 5000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads YAML from r over the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
