package protocol

import "fmt"

// ParseStatus decodes a GETSTATUS response.
//
// Data format (StatusSize bytes):
//
//	[bStatus][bwPollTimeout(3)][bState][iString]
//
// bwPollTimeout is a 24-bit little-endian millisecond count.
func ParseStatus(data []byte) (Status, error) {
	if len(data) < StatusSize {
		return Status{}, fmt.Errorf("invalid data length for status response: got %d bytes, expected %d", len(data), StatusSize)
	}

	return Status{
		Code:        StatusCode(data[0]),
		PollTimeout: uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16,
		State:       State(data[4]),
	}, nil
}
