// Package dfuse parses ST DfuSe (.dfu) firmware files.
//
// # DfuSe File Format
//
// A DfuSe file wraps firmware images in a prefix, one or more target
// prefixes, and a DFU suffix. This package supports files with exactly one
// target holding one image element, which is what ST's tools produce for a
// single flash bank. All multi-byte fields are little-endian.
//
//	Offset   Field                         Size
//	0        "DfuSe" signature             5
//	5        format version (=1)           1
//	11       "Target" signature            6
//	285      image start address           4
//	289      image length                  4
//	293      image payload                 variable
//	len-16   firmware version (bcdDevice)  2
//	len-14   product ID                    2
//	len-12   vendor ID                     2
//	len-10   bcdDFU (0x1A, 0x01)           2
//	len-8    "UFD"                         3
//	len-5    suffix length (=16)           1
//	len-4    CRC-32                        4
//
// # Checksum
//
// The stored CRC-32 is the raw register of a reflected CRC-32 started at
// 0xFFFFFFFF, without the usual final inversion. See CRC32.
//
// # Usage
//
//	img, err := dfuse.ParseFile("firmware.dfu")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Element address: 0x%08X\n", img.StartAddress)
//	fmt.Printf("Element size:    %d bytes\n", img.Length)
//	fmt.Printf("VID/PID:         %04X:%04X\n", img.VendorID, img.ProductID)
//
// # Error Handling
//
// Every rejection is a *ParseError wrapping one sentinel:
//   - ErrTruncated: buffer shorter than the fixed layout
//   - ErrSignature, ErrVersion: bad file prefix
//   - ErrTargetSignature: missing target prefix
//   - ErrImageBounds: element size runs into the suffix
//   - ErrChecksum: CRC mismatch
//   - ErrSuffix, ErrSuffixField: bad DFU suffix
//
//	if errors.Is(err, dfuse.ErrChecksum) {
//	    // file is corrupt
//	}
package dfuse
