// Package protocol implements the USB DFU requests used by the STM32 DfuSe
// bootloader.
//
// # Requests
//
// All requests are class requests to the DFU interface (bmRequestType 0x21,
// with 0x80 set for device-to-host). The bootloader is driven with three of
// them:
//
//	DFU_DNLOAD     firmware blocks, vendor commands, and the leave request
//	DFU_GETSTATUS  6-byte status: bStatus, bwPollTimeout(3), bState, iString
//	DFU_CLRSTATUS  leaves dfuERROR
//
// # Block Numbers
//
// DNLOAD's wValue carries a block number. Blocks 0 and 1 are reserved for
// DfuSe vendor commands, so firmware block n is sent as n+2:
//
//	wValue 0   command: 0x21 + address (set address pointer), 0x41 (mass erase)
//	wValue 2+  data, written at address pointer + (wValue-2) * transfer size
//
// # Driver
//
// Driver exposes one method per request. It keeps no device state, performs
// no retries, and reports any failed or short transfer as a *TransportError:
//
//	d := protocol.NewDriver(transport)
//	st, err := d.GetStatus(ctx)
//	if err != nil {
//	    return err
//	}
//	if st.State == protocol.StateError {
//	    err = d.ClearStatus(ctx)
//	}
//
// The USB link itself is supplied by the caller through the Transport
// interface, see package usbdfu for a gousb implementation.
package protocol
