package protocol

import "fmt"

// USB control request type bits.
const (
	// RequestTypeClass addresses a class request to an interface (0x21)
	RequestTypeClass = 0x21

	// DirIn marks a device-to-host transfer
	DirIn = 0x80

	// DirOut marks a host-to-device transfer
	DirOut = 0x00
)

// Request is a DFU class request code (bRequest).
type Request uint8

// DFU class requests per the USB DFU 1.1 specification.
const (
	ReqDetach    Request = 0x00
	ReqDnload    Request = 0x01
	ReqUpload    Request = 0x02
	ReqGetStatus Request = 0x03
	ReqClrStatus Request = 0x04
	ReqGetState  Request = 0x05
	ReqAbort     Request = 0x06
)

var requestStr = [...]string{
	ReqDetach:    "DFU_DETACH",
	ReqDnload:    "DFU_DNLOAD",
	ReqUpload:    "DFU_UPLOAD",
	ReqGetStatus: "DFU_GETSTATUS",
	ReqClrStatus: "DFU_CLRSTATUS",
	ReqGetState:  "DFU_GETSTATE",
	ReqAbort:     "DFU_ABORT",
}

func (r Request) String() string {
	if int(r) < len(requestStr) {
		return requestStr[r]
	}
	return fmt.Sprintf("request 0x%02X", uint8(r))
}

// State is the device state reported in the bState field of a status.
type State uint8

// DFU device states. The STM32 bootloader adds the upload sync/busy states.
const (
	StateAppIdle           State = 0x00
	StateAppDetach         State = 0x01
	StateDFUIdle           State = 0x02
	StateDnloadSync        State = 0x03
	StateDnloadBusy        State = 0x04
	StateDnloadIdle        State = 0x05
	StateManifestSync      State = 0x06
	StateManifest          State = 0x07
	StateManifestWaitReset State = 0x08
	StateUploadIdle        State = 0x09
	StateError             State = 0x0A
	StateUploadSync        State = 0x91
	StateUploadBusy        State = 0x92
)

func (s State) String() string {
	switch s {
	case StateAppIdle:
		return "appIDLE"
	case StateAppDetach:
		return "appDETACH"
	case StateDFUIdle:
		return "dfuIDLE"
	case StateDnloadSync:
		return "dfuDNLOAD-SYNC"
	case StateDnloadBusy:
		return "dfuDNBUSY"
	case StateDnloadIdle:
		return "dfuDNLOAD-IDLE"
	case StateManifestSync:
		return "dfuMANIFEST-SYNC"
	case StateManifest:
		return "dfuMANIFEST"
	case StateManifestWaitReset:
		return "dfuMANIFEST-WAIT-RESET"
	case StateUploadIdle:
		return "dfuUPLOAD-IDLE"
	case StateError:
		return "dfuERROR"
	case StateUploadSync:
		return "dfuUPLOAD-SYNC"
	case StateUploadBusy:
		return "dfuUPLOAD-BUSY"
	default:
		return fmt.Sprintf("unknown state 0x%02X", uint8(s))
	}
}

// StatusCode is the bStatus field of a status.
type StatusCode uint8

// DFU status codes.
const (
	StatusOK             StatusCode = 0x00
	StatusErrTarget      StatusCode = 0x01
	StatusErrFile        StatusCode = 0x02
	StatusErrWrite       StatusCode = 0x03
	StatusErrErase       StatusCode = 0x04
	StatusErrCheckErased StatusCode = 0x05
	StatusErrProg        StatusCode = 0x06
	StatusErrVerify      StatusCode = 0x07
	StatusErrAddress     StatusCode = 0x08
	StatusErrNotDone     StatusCode = 0x09
	StatusErrFirmware    StatusCode = 0x0A
	StatusErrVendor      StatusCode = 0x0B
	StatusErrUSBR        StatusCode = 0x0C
	StatusErrPOR         StatusCode = 0x0D
	StatusErrUnknown     StatusCode = 0x0E
	StatusErrStalledPkt  StatusCode = 0x0F
)

var statusStr = [...]string{
	StatusOK:             "no error",
	StatusErrTarget:      "file is not for this target",
	StatusErrFile:        "file fails a vendor-specific verification test",
	StatusErrWrite:       "unable to write memory",
	StatusErrErase:       "memory erase function failed",
	StatusErrCheckErased: "memory erase check failed",
	StatusErrProg:        "program memory function failed",
	StatusErrVerify:      "programmed memory failed verification",
	StatusErrAddress:     "memory address is out of range",
	StatusErrNotDone:     "premature DFU_DNLOAD with wLength = 0",
	StatusErrFirmware:    "firmware is corrupt",
	StatusErrVendor:      "vendor-specific error",
	StatusErrUSBR:        "unexpected USB reset signaling",
	StatusErrPOR:         "unexpected power on reset",
	StatusErrUnknown:     "unknown error",
	StatusErrStalledPkt:  "stalled an unexpected request",
}

func (c StatusCode) String() string {
	if int(c) < len(statusStr) {
		return statusStr[c]
	}
	return fmt.Sprintf("unknown status code 0x%02X", uint8(c))
}

// DfuSe vendor commands, sent as DNLOAD payloads with block number 0.
const (
	// CmdSetAddressPointer sets the flash write cursor (0x21 + 4-byte address)
	CmdSetAddressPointer = 0x21

	// CmdErase erases a page, or the whole flash when sent alone (0x41)
	CmdErase = 0x41
)

// Block numbers (wValue) for DNLOAD. Numbers below DataBlockOffset select
// vendor commands; firmware block n is sent as n + DataBlockOffset.
const (
	CommandBlock    = 0
	DataBlockOffset = 2
)

// Transfer sizes.
const (
	// StatusSize is the GETSTATUS response size
	StatusSize = 6

	// SetAddressPointerCmdSize is the size of a set-address-pointer command
	SetAddressPointerCmdSize = 5
)
