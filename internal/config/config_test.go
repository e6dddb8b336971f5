package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, HexID(0x0483), cfg.Device.VendorID)
	assert.Equal(t, HexID(0xDF11), cfg.Device.ProductID)
	assert.Equal(t, 500*time.Millisecond, cfg.Transfer.StatusTimeout())
	assert.Equal(t, 5*time.Second, cfg.Transfer.CommandTimeout())
	assert.Equal(t, time.Duration(0), cfg.Transfer.PollInterval())
}

func TestDecode(t *testing.T) {
	t.Parallel()

	cfg, err := Decode(strings.NewReader(`
device:
  vendor_id: "0x1209"
  product_id: 0xdf11
firmware:
  path: /srv/firmware
transfer:
  mass_erase: false
  poll_interval_ms: 2
log:
  level: debug
`))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, HexID(0x1209), cfg.Device.VendorID)
	assert.Equal(t, HexID(0xDF11), cfg.Device.ProductID)
	assert.Equal(t, -1, cfg.Device.AltSetting, "unset keys keep defaults")
	assert.Equal(t, "/srv/firmware", cfg.Firmware.Path)
	assert.Equal(t, ".dfu", cfg.Firmware.Extension)
	assert.False(t, cfg.Transfer.MassErase)
	assert.Equal(t, 2*time.Millisecond, cfg.Transfer.PollInterval())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDecodeEmpty(t *testing.T) {
	t.Parallel()

	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown key", yaml: "device:\n  serial: abc\n"},
		{name: "id too large", yaml: "device:\n  vendor_id: 0x10000\n"},
		{name: "id not a number", yaml: "device:\n  vendor_id: stm\n"},
		{name: "id not scalar", yaml: "device:\n  vendor_id: [1]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stm32dfu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "missing vendor", mutate: func(c *Config) { c.Device.VendorID = 0 }, wantErr: "vendor_id"},
		{name: "alt setting", mutate: func(c *Config) { c.Device.AltSetting = 300 }, wantErr: "alt_setting"},
		{name: "empty path", mutate: func(c *Config) { c.Firmware.Path = "" }, wantErr: "path"},
		{name: "extension without dot", mutate: func(c *Config) { c.Firmware.Extension = "dfu" }, wantErr: "extension"},
		{name: "negative poll", mutate: func(c *Config) { c.Transfer.PollIntervalMs = -1 }, wantErr: "poll_interval_ms"},
		{name: "zero timeout", mutate: func(c *Config) { c.Transfer.StatusTimeoutMs = 0 }, wantErr: "timeouts"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHexIDMarshal(t *testing.T) {
	t.Parallel()

	out, err := yaml.Marshal(Default().Device)
	require.NoError(t, err)
	assert.Contains(t, string(out), "0x0483")
	assert.Contains(t, string(out), "0xDF11")
}
