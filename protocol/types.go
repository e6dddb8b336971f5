package protocol

import (
	"fmt"
	"time"
)

// DeviceIdentity identifies a connected DFU bootloader.
// It is read from the USB device descriptor when the device is opened.
type DeviceIdentity struct {
	// VendorID is the USB idVendor
	VendorID uint16

	// ProductID is the USB idProduct
	ProductID uint16

	// BootloaderVersion is the BCD bcdDevice, e.g. 0x2200
	BootloaderVersion uint16
}

func (d DeviceIdentity) String() string {
	return fmt.Sprintf("%04X:%04X (bootloader 0x%04X)", d.VendorID, d.ProductID, d.BootloaderVersion)
}

// Status is the decoded response to one GETSTATUS request.
type Status struct {
	// Code is bStatus, the result of the most recent request
	Code StatusCode

	// State is bState, the state the device entered after the request
	State State

	// PollTimeout is bwPollTimeout in milliseconds: the minimum time the
	// host should wait before the next GETSTATUS
	PollTimeout uint32
}

// PollDelay returns PollTimeout as a duration.
func (s Status) PollDelay() time.Duration {
	return time.Duration(s.PollTimeout) * time.Millisecond
}

func (s Status) String() string {
	return fmt.Sprintf("state=%s status=%s poll=%dms", s.State, s.Code, s.PollTimeout)
}
