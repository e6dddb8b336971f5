package dfuse

import "encoding/binary"

// Element describes the contents of a single-target, single-element DfuSe
// file for Encode.
type Element struct {
	// Address is the flash address the data is written to
	Address uint32

	// Data is the image payload
	Data []byte

	VendorID    uint16
	ProductID   uint16
	FileVersion uint16

	// TargetName is optional; at most TargetNameSize-1 bytes are kept
	TargetName string

	AlternateSetting byte
}

// Encode builds a DfuSe file holding el, with a valid suffix and CRC.
//
// Example:
//
//	file := dfuse.Encode(dfuse.Element{
//	    Address:   0x08000000,
//	    Data:      firmware,
//	    VendorID:  0x0483,
//	    ProductID: 0xDF11,
//	})
func Encode(el Element) []byte {
	size := PayloadOffset + len(el.Data) + SuffixLength
	buf := make([]byte, size)

	// File prefix
	copy(buf, Signature)
	buf[versionOffset] = FormatVersion
	binary.LittleEndian.PutUint32(buf[6:], uint32(size-SuffixLength))
	buf[10] = 1 // bTargets

	// Target prefix
	copy(buf[targetSignatureOffset:], TargetSignature)
	buf[altSettingOffset] = el.AlternateSetting
	if el.TargetName != "" {
		binary.LittleEndian.PutUint32(buf[targetNamedOffset:], 1)
		name := el.TargetName
		if len(name) > TargetNameSize-1 {
			name = name[:TargetNameSize-1]
		}
		copy(buf[targetNameOffset:], name)
	}
	binary.LittleEndian.PutUint32(buf[277:], uint32(ElementHeaderSize+len(el.Data)))
	binary.LittleEndian.PutUint32(buf[281:], 1) // dwNbElements

	// Image element
	binary.LittleEndian.PutUint32(buf[ImageAddressOffset:], el.Address)
	binary.LittleEndian.PutUint32(buf[ImageLengthOffset:], uint32(len(el.Data)))
	copy(buf[PayloadOffset:], el.Data)

	// Suffix
	binary.LittleEndian.PutUint16(buf[size-fileVersionFromEnd:], el.FileVersion)
	binary.LittleEndian.PutUint16(buf[size-productIDFromEnd:], el.ProductID)
	binary.LittleEndian.PutUint16(buf[size-vendorIDFromEnd:], el.VendorID)
	binary.LittleEndian.PutUint16(buf[size-bcdDFUFromEnd:], DFUSpecVersion)
	copy(buf[size-suffixSignatureFromEnd:], SuffixSignature)
	buf[size-suffixLengthFromEnd] = SuffixLength
	binary.LittleEndian.PutUint32(buf[size-CRCSize:], Checksum(buf))

	return buf
}
