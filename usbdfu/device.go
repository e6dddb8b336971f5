package usbdfu

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/gousb"

	"github.com/umbrela/go-stm32dfu/protocol"
)

// DFU interface class codes, from the DFU 1.1 specification.
const (
	ClassApplication = 0xFE
	SubClassDFU      = 0x01
	ProtocolDFUMode  = 0x02
)

var (
	// ErrDeviceNotFound is returned when no device matches the VID/PID.
	ErrDeviceNotFound = errors.New("no device connected")

	// ErrNoDFUInterface is returned when the device has no interface in DFU mode.
	ErrNoDFUInterface = errors.New("no DFU interface")
)

// Device is a claimed DFU interface on a USB device. It implements
// protocol.Transport.
//
// A Device must be used by one goroutine at a time.
type Device struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	setting altSetting
	name    string
}

// Open finds the device with the given VID/PID, selects its DFU alternate
// setting and claims the interface.
//
// Example:
//
//	dev, err := usbdfu.Open(0x0483, 0xDF11)
//	if errors.Is(err, usbdfu.ErrDeviceNotFound) {
//	    // not plugged in, or not in DFU mode
//	}
//	defer dev.Close()
func Open(vid, pid uint16, opts ...Option) (d *Device, err error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := gousb.NewContext()
	defer func() {
		if err != nil {
			ctx.Close()
		}
	}()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, fmt.Errorf("open %04X:%04X: %w", vid, pid, err)
	}
	if dev == nil {
		return nil, fmt.Errorf("%04X:%04X: %w", vid, pid, ErrDeviceNotFound)
	}
	defer func() {
		if err != nil {
			dev.Close()
		}
	}()

	alt, name, err := selectAltSetting(findAltSettings(dev.Desc), cfg.AltSetting, func(a altSetting) (string, error) {
		return dev.InterfaceDescription(a.Config, a.Interface, a.Alternate)
	})
	if err != nil {
		return nil, err
	}

	if err := dev.SetAutoDetach(cfg.AutoDetach); err != nil {
		return nil, fmt.Errorf("set auto detach: %w", err)
	}

	c, err := dev.Config(alt.Config)
	if err != nil {
		return nil, fmt.Errorf("select config %d: %w", alt.Config, err)
	}
	intf, err := c.Interface(alt.Interface, alt.Alternate)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("claim interface %d alt %d: %w", alt.Interface, alt.Alternate, err)
	}

	return &Device{
		ctx:     ctx,
		dev:     dev,
		cfg:     c,
		intf:    intf,
		setting: alt,
		name:    name,
	}, nil
}

// Identity returns the VID, PID and bcdDevice from the device descriptor.
// STM32 bootloaders report their version in bcdDevice.
func (d *Device) Identity() protocol.DeviceIdentity {
	return protocol.DeviceIdentity{
		VendorID:          uint16(d.dev.Desc.Vendor),
		ProductID:         uint16(d.dev.Desc.Product),
		BootloaderVersion: uint16(d.dev.Desc.Device),
	}
}

// InterfaceNumber returns the claimed interface number, for wIndex.
func (d *Device) InterfaceNumber() uint16 {
	return uint16(d.setting.Interface)
}

// AltSetting returns the selected alternate setting number.
func (d *Device) AltSetting() int {
	return d.setting.Alternate
}

// AltSettingName returns the string descriptor of the selected alternate
// setting, e.g. "@Internal Flash  /0x08000000/04*016Kg,01*064Kg,07*128Kg".
func (d *Device) AltSettingName() string {
	return d.name
}

// ControlTransfer implements protocol.Transport.
func (d *Device) ControlTransfer(requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	d.dev.ControlTimeout = timeout
	return d.dev.Control(requestType, request, value, index, data)
}

// Close releases the interface and the USB context.
func (d *Device) Close() error {
	d.intf.Close()
	var errs []error
	if err := d.cfg.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close config: %w", err))
	}
	if err := d.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}
	if err := d.ctx.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	return errors.Join(errs...)
}

// altSetting locates one interface alternate setting.
type altSetting struct {
	Config    int
	Interface int
	Alternate int
}

// findAltSettings returns every DFU-mode alternate setting, ordered by
// configuration, interface and alternate number.
func findAltSettings(desc *gousb.DeviceDesc) []altSetting {
	configs := make([]int, 0, len(desc.Configs))
	for n := range desc.Configs {
		configs = append(configs, n)
	}
	sort.Ints(configs)

	var alts []altSetting
	for _, n := range configs {
		cfg := desc.Configs[n]
		for _, intf := range cfg.Interfaces {
			for _, s := range intf.AltSettings {
				if s.Class == ClassApplication && s.SubClass == SubClassDFU && s.Protocol == ProtocolDFUMode && len(s.Endpoints) == 0 {
					alts = append(alts, altSetting{Config: cfg.Number, Interface: s.Number, Alternate: s.Alternate})
				}
			}
		}
	}
	return alts
}

// selectAltSetting picks the requested alternate setting, or the one whose
// name contains "flash" when want is negative, falling back to the first.
func selectAltSetting(alts []altSetting, want int, name func(altSetting) (string, error)) (altSetting, string, error) {
	if len(alts) == 0 {
		return altSetting{}, "", ErrNoDFUInterface
	}

	if want >= 0 {
		for _, a := range alts {
			if a.Alternate == want {
				n, err := name(a)
				if err != nil {
					return altSetting{}, "", fmt.Errorf("read alt setting %d name: %w", a.Alternate, err)
				}
				return a, n, nil
			}
		}
		return altSetting{}, "", fmt.Errorf("alt setting %d: %w", want, ErrNoDFUInterface)
	}

	var firstName string
	for i, a := range alts {
		n, err := name(a)
		if err != nil {
			return altSetting{}, "", fmt.Errorf("read alt setting %d name: %w", a.Alternate, err)
		}
		if i == 0 {
			firstName = n
		}
		if strings.Contains(strings.ToLower(n), "flash") {
			return a, n, nil
		}
	}
	return alts[0], firstName, nil
}
