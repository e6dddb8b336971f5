// Package bootloader provides a high-level API for flashing STM32
// microcontrollers through the ST DfuSe USB bootloader.
//
// # Overview
//
// This package orchestrates the firmware transfer:
//   - Negotiating the image against the device identity and bootloader version
//   - Mass erasing the flash
//   - Writing the image in blocks, padding the last one with 0xFF
//   - Detaching so the device jumps to the new firmware
//
// The bootloader owns the DFU state machine. The Programmer never models it
// locally; before and after every command it polls GETSTATUS, clearing the
// status only while the device reports a state other than dfuIDLE.
//
// # Basic Usage
//
// The simplest way to flash a device:
//
//	dev, err := usbdfu.Open(0x0483, 0xDF11)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	img, err := dfuse.ParseFile("firmware.dfu")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	prog := bootloader.New(dev, dev.Identity(),
//	    bootloader.WithInterface(dev.InterfaceNumber()))
//
//	if _, err := prog.MassErase(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := prog.Program(ctx, img); err != nil {
//	    log.Fatal(err)
//	}
//
// # Compatibility
//
// Negotiate refuses files built for another VID/PID and bootloaders with an
// unknown version. The bootloader version selects the block size:
//
//	0x011A, 0x0200  1024 bytes
//	0x2100, 0x2200  2048 bytes
//
// A file version that differs from the bootloader version is reported as a
// VersionMismatchWarning and logged; programming continues.
//
// # Progress Tracking
//
// Track programming progress with a callback:
//
//	prog := bootloader.New(dev, dev.Identity(),
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Block %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentBlock, p.TotalBlocks)
//	    }),
//	)
//
// # Configuration Options
//
//	prog := bootloader.New(dev, id,
//	    bootloader.WithLogger(logging.Adapt(log)),
//	    bootloader.WithPollInterval(time.Millisecond),
//	    bootloader.WithStatusTimeout(time.Second),
//	    bootloader.WithCommandTimeout(10*time.Second),
//	)
//
// The idle-wait loop busy-polls by default. WithPollInterval adds a minimum
// sleep between iterations without changing the requests sent.
//
// # Context Support
//
// The context is checked before every control transfer and during the mass
// erase sleep. A transfer already in flight is bounded by its USB timeout.
//
// # Error Handling
//
// The package provides structured error types:
//   - IdentityMismatchError: file VID/PID differs from the device
//   - UnsupportedBootloaderError: no block size for the bootloader version
//   - protocol.TransportError: a control transfer failed or was short
//   - dfuse.ParseError: returned by the parser before any device access
//
// Every error aborts the current operation. Nothing is rolled back; the
// device is left in whatever state it reports.
package bootloader
