package bootloader

import (
	"github.com/umbrela/go-stm32dfu/dfuse"
	"github.com/umbrela/go-stm32dfu/protocol"
)

// Negotiation is the outcome of matching a file against a device.
type Negotiation struct {
	// Image is the input image with MaxWriteBlockSize set for the device
	Image *dfuse.Image

	// VersionWarning is set when file and bootloader versions differ
	VersionWarning *VersionMismatchWarning
}

// BlockSizeFor returns the download block size supported by a bootloader
// version.
func BlockSizeFor(version uint16) (uint32, error) {
	switch version {
	case 0x011A, 0x0200:
		return 1024, nil
	case 0x2100, 0x2200:
		return 2048, nil
	default:
		return 0, &UnsupportedBootloaderError{Version: version}
	}
}

// Negotiate checks that img was built for dev and selects the block size.
// A VID/PID mismatch or an unknown bootloader version is fatal; a version
// mismatch is only reported in the result.
func Negotiate(img *dfuse.Image, dev protocol.DeviceIdentity) (*Negotiation, error) {
	if img.VendorID != dev.VendorID || img.ProductID != dev.ProductID {
		return nil, &IdentityMismatchError{
			FileVendorID:    img.VendorID,
			FileProductID:   img.ProductID,
			DeviceVendorID:  dev.VendorID,
			DeviceProductID: dev.ProductID,
		}
	}

	n := &Negotiation{}
	if img.FileVersion != dev.BootloaderVersion {
		n.VersionWarning = &VersionMismatchWarning{
			FileVersion:   img.FileVersion,
			DeviceVersion: dev.BootloaderVersion,
		}
	}

	size, err := BlockSizeFor(dev.BootloaderVersion)
	if err != nil {
		return nil, err
	}
	n.Image = img.WithBlockSize(size)
	return n, nil
}
