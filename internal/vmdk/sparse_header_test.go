package vmdk

import (
	"errors"
	"testing"
)

func sampleHeader(bo ByteOrder) *SparseExtentHeader {
	return &SparseExtentHeader{
		Version:            1,
		Flags:              FlagNewlineCheck | FlagRedundantGrainTable,
		Capacity:           4194304,
		GrainSize:          128,
		DescriptorOffset:   1,
		DescriptorSize:     20,
		NumGTEsPerGT:       512,
		RgdOffset:          21,
		GdOffset:           277,
		OverHead:           1024,
		UncleanShutdown:    false,
		SingleEndLineChar:  '\n',
		NonEndLineChar:     ' ',
		DoubleEndLineChar1: '\r',
		DoubleEndLineChar2: '\n',
		CompressAlgorithm:  CompressNone,
		ByteOrder:          bo,
	}
}

func TestDecodeSparseExtentHeaderRoundTrip(t *testing.T) {
	for _, bo := range []ByteOrder{LittleEndian, BigEndian} {
		want := sampleHeader(bo)
		got, err := DecodeSparseExtentHeader(want.Encode())
		if err != nil {
			t.Fatalf("decode (%s-endian): %v", bo, err)
		}
		if *got != *want {
			t.Errorf("round trip mismatch (%s-endian):\n got %+v\nwant %+v", bo, got, want)
		}
	}
}

func TestDecodeSparseExtentHeaderEndianEquivalence(t *testing.T) {
	// The same logical header stored in both byte orders must decode to
	// identical field values.
	le, err := DecodeSparseExtentHeader(sampleHeader(LittleEndian).Encode())
	if err != nil {
		t.Fatal(err)
	}
	be, err := DecodeSparseExtentHeader(sampleHeader(BigEndian).Encode())
	if err != nil {
		t.Fatal(err)
	}

	if le.ByteOrder != LittleEndian || be.ByteOrder != BigEndian {
		t.Fatalf("byte order detection: got %s and %s", le.ByteOrder, be.ByteOrder)
	}
	le.ByteOrder = 0
	be.ByteOrder = 0
	if *le != *be {
		t.Errorf("logical fields differ between byte orders:\n le %+v\n be %+v", le, be)
	}
}

func TestDecodeSparseExtentHeaderShortBuffer(t *testing.T) {
	buf := sampleHeader(LittleEndian).Encode()
	_, err := DecodeSparseExtentHeader(buf[:SectorSize-1])
	if !errors.Is(err, ErrHeaderTooShort) {
		t.Errorf("expected ErrHeaderTooShort, got %v", err)
	}
}

func TestDecodeSparseExtentHeaderBadMagic(t *testing.T) {
	buf := sampleHeader(LittleEndian).Encode()
	copy(buf, "QCOW")
	_, err := DecodeSparseExtentHeader(buf)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestSparseExtentHeaderFlags(t *testing.T) {
	h := &SparseExtentHeader{Flags: FlagCompressedGrains | FlagHasMarkers}
	if h.NewlineCheck() || h.HasRedundantGrainTable() {
		t.Error("unset flags reported set")
	}
	if !h.Compressed() || !h.HasMarkers() {
		t.Error("set flags reported unset")
	}
}

func TestSparseExtentHeaderValidate(t *testing.T) {
	tests := []struct {
		name      string
		grainSize uint64
		capacity  uint64
		wantErr   error
	}{
		{"ok", 128, 4194304, nil},
		{"grain not power of two", 100, 4194304, ErrInvalidGrainSize},
		{"grain too small", 4, 4194304, ErrInvalidGrainSize},
		{"capacity not grain multiple", 128, 4194305, ErrInvalidCapacity},
	}
	for _, tt := range tests {
		h := &SparseExtentHeader{GrainSize: tt.grainSize, Capacity: tt.capacity}
		err := h.Validate()
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: Validate() = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}
