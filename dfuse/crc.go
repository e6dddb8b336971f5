package dfuse

import "hash/crc32"

// CRCInitialValue is the register value before the first byte is processed.
const CRCInitialValue = 0xFFFFFFFF

// CRCSize is the size of the trailing checksum field in a DfuSe file.
const CRCSize = 4

// crcTable is the reflected CRC-32 table for polynomial 0xEDB88320.
var crcTable = crc32.IEEETable

// CRC32 computes the DfuSe file checksum over data.
//
// The algorithm is a reflected, table-driven CRC-32:
//   - Polynomial: 0xEDB88320 (reflected IEEE)
//   - Initial value: CRCInitialValue
//   - No final XOR
//
// The missing final inversion is what ST's DfuSe tools write into the file
// suffix, so the result is the bitwise complement of crc32.ChecksumIEEE.
func CRC32(data []byte) uint32 {
	crc := uint32(CRCInitialValue)
	for _, b := range data {
		crc = crcTable[byte(crc)^b] ^ (crc >> 8)
	}
	return crc
}

// Checksum computes the checksum of a complete DfuSe file, excluding the
// trailing CRCSize bytes that hold the stored checksum.
func Checksum(file []byte) uint32 {
	if len(file) < CRCSize {
		return CRC32(nil)
	}
	return CRC32(file[:len(file)-CRCSize])
}
