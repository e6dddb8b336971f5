package dfuse

// Image represents a parsed and validated single-target DfuSe file.
//
// An Image is only produced by the parser after every check has passed,
// and it is read-only afterwards. Use WithBlockSize to derive a copy with a
// negotiated transfer size.
type Image struct {
	// Path is the file the image was loaded from (empty for in-memory data)
	Path string

	// StartAddress is the flash address of the image element
	StartAddress uint32

	// Length is the number of image bytes starting at PayloadOffset
	Length uint32

	// VendorID is the USB vendor ID from the file suffix
	VendorID uint16

	// ProductID is the USB product ID from the file suffix
	ProductID uint16

	// FileVersion is the bcdDevice field from the file suffix
	FileVersion uint16

	// MaxWriteBlockSize is the download block size. It is
	// DefaultMaxWriteBlockSize until compatibility has been negotiated.
	MaxWriteBlockSize uint32

	// TargetName is the target name from the target prefix, if the file names one
	TargetName string

	// AlternateSetting is the bAlternateSetting field of the target prefix
	AlternateSetting byte

	raw []byte
}

// Size returns the total file size in bytes.
func (img *Image) Size() int {
	return len(img.raw)
}

// Payload returns the Length image bytes that start at PayloadOffset.
// The returned slice aliases the image and must not be modified.
func (img *Image) Payload() []byte {
	end := PayloadOffset + int(img.Length)
	return img.raw[PayloadOffset:end:end]
}

// WithBlockSize returns a copy of the image with MaxWriteBlockSize set.
// The underlying file buffer is shared, which is safe because it is never
// written after parsing.
func (img *Image) WithBlockSize(size uint32) *Image {
	cp := *img
	cp.MaxWriteBlockSize = size
	return &cp
}
