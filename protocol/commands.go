package protocol

import "encoding/binary"

// BuildMassEraseCmd constructs the DfuSe mass erase command payload.
//
// Payload structure:
//
//	[CMD_ERASE]
//
// Sent alone, the erase command erases every page of the flash.
func BuildMassEraseCmd() []byte {
	return []byte{CmdErase}
}

// BuildSetAddressPointerCmd constructs the DfuSe set address pointer command
// payload. The address selects where the next data block is written, or where
// the device jumps to after leaving DFU mode.
//
// Payload structure:
//
//	[CMD_SET_ADDRESS][ADDR_0][ADDR_1][ADDR_2][ADDR_3]
//
// The address is little-endian.
func BuildSetAddressPointerCmd(address uint32) []byte {
	cmd := make([]byte, SetAddressPointerCmdSize)
	cmd[0] = CmdSetAddressPointer
	binary.LittleEndian.PutUint32(cmd[1:], address)
	return cmd
}

// DataBlockNumber returns the DNLOAD wValue for firmware block n.
func DataBlockNumber(n uint16) uint16 {
	return n + DataBlockOffset
}
