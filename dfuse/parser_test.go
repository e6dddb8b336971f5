package dfuse

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func testFile() []byte {
	return Encode(Element{
		Address:     0x08000000,
		Data:        testPayload(64),
		VendorID:    0x0483,
		ProductID:   0xDF11,
		FileVersion: 0x2200,
	})
}

// reseal rewrites the trailing CRC after a test mutates the file.
func reseal(buf []byte) []byte {
	binary.LittleEndian.PutUint32(buf[len(buf)-CRCSize:], Checksum(buf))
	return buf
}

func TestParse(t *testing.T) {
	t.Parallel()

	img, err := Parse(testFile())
	require.NoError(t, err)

	assert.Equal(t, uint32(0x08000000), img.StartAddress)
	assert.Equal(t, uint32(64), img.Length)
	assert.Equal(t, uint16(0x0483), img.VendorID)
	assert.Equal(t, uint16(0xDF11), img.ProductID)
	assert.Equal(t, uint16(0x2200), img.FileVersion)
	assert.Equal(t, uint32(DefaultMaxWriteBlockSize), img.MaxWriteBlockSize)
	assert.Equal(t, PayloadOffset+64+SuffixLength, img.Size())
	assert.Equal(t, testPayload(64), img.Payload())
	assert.Empty(t, img.TargetName)
}

func TestParseFieldsMatchOffsets(t *testing.T) {
	t.Parallel()

	file := testFile()
	n := len(file)
	img, err := Parse(file)
	require.NoError(t, err)

	assert.Equal(t, binary.LittleEndian.Uint32(file[285:289]), img.StartAddress)
	assert.Equal(t, binary.LittleEndian.Uint32(file[289:293]), img.Length)
	assert.Equal(t, uint16(file[n-12])|uint16(file[n-11])<<8, img.VendorID)
	assert.Equal(t, uint16(file[n-14])|uint16(file[n-13])<<8, img.ProductID)
	assert.Equal(t, uint16(file[n-16])|uint16(file[n-15])<<8, img.FileVersion)
	assert.Equal(t, file[293:293+64], img.Payload())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate  func([]byte) []byte
		wantErr error
		name    string
	}{
		{
			name:    "empty file",
			mutate:  func([]byte) []byte { return nil },
			wantErr: ErrTruncated,
		},
		{
			name:    "shorter than fixed layout",
			mutate:  func(b []byte) []byte { return b[:MinFileSize-1] },
			wantErr: ErrTruncated,
		},
		{
			name:    "truncated signature",
			mutate:  func(b []byte) []byte { return b[1:] },
			wantErr: ErrSignature,
		},
		{
			name: "wrong signature",
			mutate: func(b []byte) []byte {
				copy(b, "DfuXe")
				return reseal(b)
			},
			wantErr: ErrSignature,
		},
		{
			name: "wrong format version",
			mutate: func(b []byte) []byte {
				b[5] = 2
				return reseal(b)
			},
			wantErr: ErrVersion,
		},
		{
			name: "missing target prefix",
			mutate: func(b []byte) []byte {
				copy(b[11:], "Tarxet")
				return reseal(b)
			},
			wantErr: ErrTargetSignature,
		},
		{
			name: "element larger than file",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[ImageLengthOffset:], 65)
				return reseal(b)
			},
			wantErr: ErrImageBounds,
		},
		{
			name: "element length corrupted without reseal",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[ImageLengthOffset:], 0xFFFFFFFF)
				return b
			},
			wantErr: ErrChecksum,
		},
		{
			name: "payload byte flipped",
			mutate: func(b []byte) []byte {
				b[PayloadOffset] ^= 0x01
				return b
			},
			wantErr: ErrChecksum,
		},
		{
			name: "wrong suffix signature",
			mutate: func(b []byte) []byte {
				copy(b[len(b)-8:], "UFX")
				return reseal(b)
			},
			wantErr: ErrSuffix,
		},
		{
			name: "wrong suffix length",
			mutate: func(b []byte) []byte {
				b[len(b)-5] = 15
				return reseal(b)
			},
			wantErr: ErrSuffixField,
		},
		{
			name: "wrong bcdDFU low byte",
			mutate: func(b []byte) []byte {
				b[len(b)-10] = 0x1B
				return reseal(b)
			},
			wantErr: ErrSuffixField,
		},
		{
			name: "wrong bcdDFU high byte",
			mutate: func(b []byte) []byte {
				b[len(b)-9] = 0x02
				return reseal(b)
			},
			wantErr: ErrSuffixField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			img, err := Parse(tt.mutate(testFile()))
			require.Error(t, err)
			assert.Nil(t, img)
			assert.ErrorIs(t, err, tt.wantErr)

			var perr *ParseError
			assert.True(t, errors.As(err, &perr), "error type = %T, want *ParseError", err)
		})
	}
}

func TestParseSuffixFieldDetail(t *testing.T) {
	t.Parallel()

	file := testFile()
	file[len(file)-10] = 0x1B
	_, err := Parse(reseal(file))
	require.ErrorIs(t, err, ErrSuffixField)
	assert.Contains(t, err.Error(), "bcdDFU 0x011B")

	// The encoder writes bcdDFU as 1A 01.
	file = testFile()
	assert.Equal(t, []byte{0x1A, 0x01}, file[len(file)-10:len(file)-8])
}

func TestParseChecksumByteMutation(t *testing.T) {
	t.Parallel()

	for i := 1; i <= CRCSize; i++ {
		file := testFile()
		file[len(file)-i] ^= 0x80

		_, err := Parse(file)
		assert.ErrorIs(t, err, ErrChecksum, "mutating CRC byte len-%d", i)
	}
}

func TestParseCopiesBuffer(t *testing.T) {
	t.Parallel()

	file := testFile()
	img, err := Parse(file)
	require.NoError(t, err)

	for i := range file {
		file[i] = 0
	}

	assert.Equal(t, testPayload(64), img.Payload())
}

func TestParseTargetName(t *testing.T) {
	t.Parallel()

	file := Encode(Element{
		Address:          0x08004000,
		Data:             testPayload(8),
		VendorID:         0x0483,
		ProductID:        0xDF11,
		TargetName:       "ST...",
		AlternateSetting: 0,
	})

	img, err := Parse(file)
	require.NoError(t, err)
	assert.Equal(t, "ST...", img.TargetName)
	assert.Equal(t, uint32(0x08004000), img.StartAddress)
}

func TestParseTrailingGap(t *testing.T) {
	t.Parallel()

	// Bytes between the element and the suffix are allowed; offsets are fixed.
	base := testFile()
	suffix := append([]byte(nil), base[len(base)-SuffixLength:]...)
	file := append(append(append([]byte(nil), base[:len(base)-SuffixLength]...), make([]byte, 100)...), suffix...)

	img, err := Parse(reseal(file))
	require.NoError(t, err)
	assert.Equal(t, uint32(64), img.Length)
	assert.Equal(t, testPayload(64), img.Payload())
}

func TestParseReader(t *testing.T) {
	t.Parallel()

	img, err := ParseReader(bytes.NewReader(testFile()))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x08000000), img.StartAddress)
	assert.Empty(t, img.Path)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "firmware.dfu")
	require.NoError(t, os.WriteFile(path, testFile(), 0o600))

	img, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, img.Path)
	assert.Equal(t, uint16(0xDF11), img.ProductID)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.dfu"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestWithBlockSize(t *testing.T) {
	t.Parallel()

	img, err := Parse(testFile())
	require.NoError(t, err)

	negotiated := img.WithBlockSize(2048)
	assert.Equal(t, uint32(2048), negotiated.MaxWriteBlockSize)
	assert.Equal(t, uint32(DefaultMaxWriteBlockSize), img.MaxWriteBlockSize)
	assert.Equal(t, img.Payload(), negotiated.Payload())
}

func TestParseErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ParseError{Err: ErrChecksum, Detail: "file has 0x00000001, computed 0x00000002"}
	assert.Equal(t, "dfuse: CRC check failed: file has 0x00000001, computed 0x00000002", err.Error())

	bare := &ParseError{Err: ErrSuffix}
	assert.Equal(t, "dfuse: file suffix error", bare.Error())
}

func BenchmarkParse(b *testing.B) {
	file := Encode(Element{Address: 0x08000000, Data: testPayload(64 * 1024), VendorID: 0x0483, ProductID: 0xDF11})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Parse(file)
	}
}
