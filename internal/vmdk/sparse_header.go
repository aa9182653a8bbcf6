package vmdk

import (
	"bytes"
	"encoding/binary"
)

// The 32-bit magic number spells "VMDK". Stored little-endian the bytes
// read "KDMV", which is the common case; big-endian files carry the
// literal text.
var (
	magicLittleEndian = []byte("KDMV")
	magicBigEndian    = []byte("VMDK")
)

// Sparse extent header flag bits.
const (
	FlagNewlineCheck        = 1 << 0  // newline-validity bytes are meaningful
	FlagRedundantGrainTable = 1 << 1  // a redundant grain table is present
	FlagCompressedGrains    = 1 << 16 // grain data is compressed
	FlagHasMarkers          = 1 << 17 // stream markers are present
)

// Values for SparseExtentHeader.CompressAlgorithm.
const (
	CompressNone    = 0
	CompressDeflate = 1
)

// ByteOrder identifies the byte order a sparse header was stored in.
// The choice is made once from the magic signature; all multi-byte
// fields are decoded with the selected order.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big"
	}
	return "little"
}

// MarshalJSON renders the order as "little" or "big".
func (o ByteOrder) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

func (o ByteOrder) order() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// SparseExtentHeader is the decoded form of the fixed 512-byte record at
// the start of a sparse extent. All sized fields are in sector units.
// Instances are immutable once decoded; the 433 trailing pad bytes are
// not retained.
type SparseExtentHeader struct {
	Version            uint32    `json:"version"`
	Flags              uint32    `json:"flags"`
	Capacity           uint64    `json:"capacity"`
	GrainSize          uint64    `json:"grainSize"`
	DescriptorOffset   uint64    `json:"descriptorOffset"`
	DescriptorSize     uint64    `json:"descriptorSize"`
	NumGTEsPerGT       uint32    `json:"numGTEsPerGT"`
	RgdOffset          uint64    `json:"rgdOffset"`
	GdOffset           uint64    `json:"gdOffset"`
	OverHead           uint64    `json:"overHead"`
	UncleanShutdown    bool      `json:"uncleanShutdown"`
	SingleEndLineChar  byte      `json:"singleEndLineChar"`
	NonEndLineChar     byte      `json:"nonEndLineChar"`
	DoubleEndLineChar1 byte      `json:"doubleEndLineChar1"`
	DoubleEndLineChar2 byte      `json:"doubleEndLineChar2"`
	CompressAlgorithm  uint16    `json:"compressAlgorithm"`
	ByteOrder          ByteOrder `json:"byteOrder"`
}

// Fixed byte offsets of the header fields, after the 4-byte magic.
const (
	offVersion            = 4
	offFlags              = 8
	offCapacity           = 12
	offGrainSize          = 20
	offDescriptorOffset   = 28
	offDescriptorSize     = 36
	offNumGTEsPerGT       = 44
	offRgdOffset          = 48
	offGdOffset           = 56
	offOverHead           = 64
	offUncleanShutdown    = 72
	offSingleEndLineChar  = 73
	offNonEndLineChar     = 74
	offDoubleEndLineChar1 = 75
	offDoubleEndLineChar2 = 76
	offCompressAlgorithm  = 77
	offPad                = 79
)

// HasSparseMagic reports whether buf begins with the sparse extent magic
// in either byte order.
func HasSparseMagic(buf []byte) bool {
	return bytes.HasPrefix(buf, magicLittleEndian) || bytes.HasPrefix(buf, magicBigEndian)
}

// DecodeSparseExtentHeader decodes one full sector into a header. The
// byte order is detected from the magic: the literal text "VMDK" selects
// big-endian, anything else is decoded little-endian and must then spell
// "KDMV". A buffer shorter than one sector is a format error.
func DecodeSparseExtentHeader(buf []byte) (*SparseExtentHeader, error) {
	if len(buf) < SectorSize {
		return nil, ErrHeaderTooShort
	}

	var bo ByteOrder
	switch {
	case bytes.HasPrefix(buf, magicBigEndian):
		bo = BigEndian
	case bytes.HasPrefix(buf, magicLittleEndian):
		bo = LittleEndian
	default:
		return nil, ErrInvalidMagic
	}
	ord := bo.order()

	h := &SparseExtentHeader{
		Version:            ord.Uint32(buf[offVersion:]),
		Flags:              ord.Uint32(buf[offFlags:]),
		Capacity:           ord.Uint64(buf[offCapacity:]),
		GrainSize:          ord.Uint64(buf[offGrainSize:]),
		DescriptorOffset:   ord.Uint64(buf[offDescriptorOffset:]),
		DescriptorSize:     ord.Uint64(buf[offDescriptorSize:]),
		NumGTEsPerGT:       ord.Uint32(buf[offNumGTEsPerGT:]),
		RgdOffset:          ord.Uint64(buf[offRgdOffset:]),
		GdOffset:           ord.Uint64(buf[offGdOffset:]),
		OverHead:           ord.Uint64(buf[offOverHead:]),
		UncleanShutdown:    buf[offUncleanShutdown] != 0,
		SingleEndLineChar:  buf[offSingleEndLineChar],
		NonEndLineChar:     buf[offNonEndLineChar],
		DoubleEndLineChar1: buf[offDoubleEndLineChar1],
		DoubleEndLineChar2: buf[offDoubleEndLineChar2],
		CompressAlgorithm:  ord.Uint16(buf[offCompressAlgorithm:]),
		ByteOrder:          bo,
	}
	return h, nil
}

// Encode renders the header back into its 512-byte on-disk layout using
// the header's byte order. Pad bytes are zero.
func (h *SparseExtentHeader) Encode() []byte {
	buf := make([]byte, SectorSize)
	ord := h.ByteOrder.order()

	if h.ByteOrder == BigEndian {
		copy(buf, magicBigEndian)
	} else {
		copy(buf, magicLittleEndian)
	}
	ord.PutUint32(buf[offVersion:], h.Version)
	ord.PutUint32(buf[offFlags:], h.Flags)
	ord.PutUint64(buf[offCapacity:], h.Capacity)
	ord.PutUint64(buf[offGrainSize:], h.GrainSize)
	ord.PutUint64(buf[offDescriptorOffset:], h.DescriptorOffset)
	ord.PutUint64(buf[offDescriptorSize:], h.DescriptorSize)
	ord.PutUint32(buf[offNumGTEsPerGT:], h.NumGTEsPerGT)
	ord.PutUint64(buf[offRgdOffset:], h.RgdOffset)
	ord.PutUint64(buf[offGdOffset:], h.GdOffset)
	ord.PutUint64(buf[offOverHead:], h.OverHead)
	if h.UncleanShutdown {
		buf[offUncleanShutdown] = 1
	}
	buf[offSingleEndLineChar] = h.SingleEndLineChar
	buf[offNonEndLineChar] = h.NonEndLineChar
	buf[offDoubleEndLineChar1] = h.DoubleEndLineChar1
	buf[offDoubleEndLineChar2] = h.DoubleEndLineChar2
	ord.PutUint16(buf[offCompressAlgorithm:], h.CompressAlgorithm)
	return buf
}

// NewlineCheck reports whether the newline-validity bytes should be
// checked for FTP text-mode corruption.
func (h *SparseExtentHeader) NewlineCheck() bool {
	return h.Flags&FlagNewlineCheck != 0
}

// HasRedundantGrainTable reports whether a redundant grain table is present.
func (h *SparseExtentHeader) HasRedundantGrainTable() bool {
	return h.Flags&FlagRedundantGrainTable != 0
}

// Compressed reports whether grain data is compressed.
func (h *SparseExtentHeader) Compressed() bool {
	return h.Flags&FlagCompressedGrains != 0
}

// HasMarkers reports whether stream markers are present.
func (h *SparseExtentHeader) HasMarkers() bool {
	return h.Flags&FlagHasMarkers != 0
}

// Validate checks the documented field invariants: grain size a power of
// two no smaller than 8 sectors, capacity a whole number of grains.
func (h *SparseExtentHeader) Validate() error {
	// x & (x-1) == 0 iff x is a power of two
	if h.GrainSize < 8 || h.GrainSize&(h.GrainSize-1) != 0 {
		return ErrInvalidGrainSize
	}
	if h.Capacity%h.GrainSize != 0 {
		return ErrInvalidCapacity
	}
	return nil
}
