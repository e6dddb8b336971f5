package usbdfu

// Config holds the options used to open a device.
type Config struct {
	// AltSetting selects the DFU alternate setting by number. When negative,
	// the setting whose name contains "Flash" is used, or the first one.
	AltSetting int

	// AutoDetach detaches a kernel driver bound to the interface
	AutoDetach bool
}

func defaultConfig() Config {
	return Config{
		AltSetting: -1,
		AutoDetach: true,
	}
}

// Option is a functional option for Open.
type Option func(*Config)

// WithAltSetting selects the DFU alternate setting, usually the image's
// bAlternateSetting.
func WithAltSetting(alt int) Option {
	return func(c *Config) {
		c.AltSetting = alt
	}
}

// WithAutoDetach controls kernel driver auto-detach. Default is true.
func WithAutoDetach(enabled bool) Option {
	return func(c *Config) {
		c.AutoDetach = enabled
	}
}
