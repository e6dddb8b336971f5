package dfuse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Constants for the DfuSe file layout. Offsets assume a single target with
// a single image element.
const (
	// Signature is the file prefix signature
	Signature = "DfuSe"

	// FormatVersion is the only supported DfuSe prefix version
	FormatVersion = 1

	// PrefixSize is the size of the file prefix
	PrefixSize = 11

	// TargetSignature opens the target prefix
	TargetSignature = "Target"

	// TargetPrefixSize is the size of the target prefix
	TargetPrefixSize = 274

	// TargetNameSize is the size of the szTargetName field
	TargetNameSize = 255

	// ElementHeaderSize is the size of an image element header
	ElementHeaderSize = 8

	// ImageAddressOffset locates dwElementAddress of the first element
	ImageAddressOffset = 285

	// ImageLengthOffset locates dwElementSize of the first element
	ImageLengthOffset = 289

	// PayloadOffset is where image bytes start
	PayloadOffset = 293

	// SuffixSignature is the reversed "DFU" marker in the suffix
	SuffixSignature = "UFD"

	// SuffixLength is the size of the DFU suffix, including the CRC
	SuffixLength = 16

	// DFUSpecVersion is the bcdDFU value stored in the suffix
	DFUSpecVersion = 0x011A

	// MinFileSize is the smallest buffer that can hold every fixed field
	MinFileSize = PayloadOffset + SuffixLength

	// DefaultMaxWriteBlockSize is used until compatibility is negotiated
	DefaultMaxWriteBlockSize = 1024
)

const (
	versionOffset          = 5
	targetSignatureOffset  = 11
	altSettingOffset       = 17
	targetNamedOffset      = 18
	targetNameOffset       = 22
	suffixSignatureFromEnd = 8
	suffixLengthFromEnd    = 5
	bcdDFUFromEnd          = 10
	vendorIDFromEnd        = 12
	productIDFromEnd       = 14
	fileVersionFromEnd     = 16
)

// ParseFile reads and parses a DfuSe file from disk.
//
// Example:
//
//	img, err := dfuse.ParseFile("firmware.dfu")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Address: 0x%08X, %d bytes\n", img.StartAddress, img.Length)
func ParseFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	img, err := parse(data)
	if err != nil {
		return nil, err
	}
	img.Path = path
	return img, nil
}

// ParseReader parses a DfuSe file from any io.Reader.
func ParseReader(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return parse(data)
}

// Parse validates data as a single-target DfuSe file and returns the image
// it describes. The buffer is copied; later changes to data do not affect
// the returned Image.
//
// Checks run in this order, each one fatal:
//  1. minimum size
//  2. "DfuSe" signature and format version
//  3. "Target" signature
//  4. CRC-32 over everything but the last 4 bytes
//  5. "UFD" suffix signature, suffix length and bcdDFU marker
//  6. image element bounds
//
// The bounds check comes last so that a corrupted file reports ErrChecksum
// even when the corruption hits the element length.
func Parse(data []byte) (*Image, error) {
	return parse(bytes.Clone(data))
}

// parse takes ownership of buf.
func parse(buf []byte) (*Image, error) {
	n := len(buf)
	if n < MinFileSize {
		return nil, parseErr(ErrTruncated, "got %d bytes, minimum is %d", n, MinFileSize)
	}

	if sig := buf[:len(Signature)]; string(sig) != Signature {
		return nil, parseErr(ErrSignature, "got %q, expected %q", sig, Signature)
	}

	if buf[versionOffset] != FormatVersion {
		return nil, parseErr(ErrVersion, "got %d, DFU file version must be %d", buf[versionOffset], FormatVersion)
	}

	target := buf[targetSignatureOffset : targetSignatureOffset+len(TargetSignature)]
	if string(target) != TargetSignature {
		return nil, parseErr(ErrTargetSignature, "got %q, expected %q", target, TargetSignature)
	}

	startAddress := binary.LittleEndian.Uint32(buf[ImageAddressOffset:])
	length := binary.LittleEndian.Uint32(buf[ImageLengthOffset:])

	stored := binary.LittleEndian.Uint32(buf[n-CRCSize:])
	if computed := Checksum(buf); computed != stored {
		return nil, parseErr(ErrChecksum, "file has 0x%08X, computed 0x%08X", stored, computed)
	}

	suffix := buf[n-suffixSignatureFromEnd : n-suffixSignatureFromEnd+len(SuffixSignature)]
	if string(suffix) != SuffixSignature {
		return nil, parseErr(ErrSuffix, "got %q, expected %q", suffix, SuffixSignature)
	}

	bcdDFU := binary.LittleEndian.Uint16(buf[n-bcdDFUFromEnd:])
	if buf[n-suffixLengthFromEnd] != SuffixLength || bcdDFU != DFUSpecVersion {
		return nil, parseErr(ErrSuffixField, "suffix length %d, bcdDFU 0x%04X",
			buf[n-suffixLengthFromEnd], bcdDFU)
	}

	if available := uint64(n - PayloadOffset - SuffixLength); uint64(length) > available {
		return nil, parseErr(ErrImageBounds, "element size %d exceeds the %d bytes before the suffix", length, available)
	}

	img := &Image{
		StartAddress:      startAddress,
		Length:            length,
		VendorID:          binary.LittleEndian.Uint16(buf[n-vendorIDFromEnd:]),
		ProductID:         binary.LittleEndian.Uint16(buf[n-productIDFromEnd:]),
		FileVersion:       binary.LittleEndian.Uint16(buf[n-fileVersionFromEnd:]),
		MaxWriteBlockSize: DefaultMaxWriteBlockSize,
		AlternateSetting:  buf[altSettingOffset],
		raw:               buf,
	}

	if binary.LittleEndian.Uint32(buf[targetNamedOffset:]) != 0 {
		name := buf[targetNameOffset : targetNameOffset+TargetNameSize]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		img.TargetName = string(name)
	}

	return img, nil
}
