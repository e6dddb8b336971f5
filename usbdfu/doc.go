// Package usbdfu opens an STM32 bootloader in DFU mode over libusb and
// exposes it as a protocol.Transport.
//
// Open selects the DFU alternate setting (class 0xFE, subclass 1,
// protocol 2), claims its interface and reads the device identity from the
// device descriptor. Building this package requires cgo and libusb-1.0.
package usbdfu
