package bootloader

import (
	"errors"
	"fmt"
)

// ErrTooManyBlocks is returned when the payload needs more blocks than the
// 16-bit DNLOAD block number can address at the negotiated block size.
var ErrTooManyBlocks = errors.New("image needs more blocks than wValue can address")

// IdentityMismatchError indicates that the file's VID/PID does not match the
// connected device.
type IdentityMismatchError struct {
	FileVendorID    uint16
	FileProductID   uint16
	DeviceVendorID  uint16
	DeviceProductID uint16
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("PID/VID mismatch: file is for %04X:%04X, device is %04X:%04X",
		e.FileVendorID, e.FileProductID, e.DeviceVendorID, e.DeviceProductID)
}

// UnsupportedBootloaderError indicates a bootloader version with no known
// transfer block size.
type UnsupportedBootloaderError struct {
	Version uint16
}

func (e *UnsupportedBootloaderError) Error() string {
	return fmt.Sprintf("unsupported bootloader version 0x%04X", e.Version)
}

// VersionMismatchWarning reports that the file version differs from the
// bootloader version. It is not fatal; programming continues.
type VersionMismatchWarning struct {
	FileVersion   uint16
	DeviceVersion uint16
}

func (w *VersionMismatchWarning) Error() string {
	return fmt.Sprintf("device version 0x%04X differs from file version 0x%04X",
		w.DeviceVersion, w.FileVersion)
}
