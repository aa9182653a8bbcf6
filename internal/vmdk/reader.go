package vmdk

import (
	"bytes"
)

// DescriptorSignature is the leading text of a descriptor-only file.
const DescriptorSignature = "# Disk DescriptorFile"

// maxDescriptorSectors caps the embedded descriptor size (16 MiB) so a
// corrupt header cannot force an unbounded allocation.
const maxDescriptorSectors = 32768

// Format classifies what the probe of sector 0 found.
type Format int

const (
	// FormatUnknown means sector 0 matched neither signature. This is a
	// normal empty result, not an error; callers decide whether it is
	// fatal for their purposes.
	FormatUnknown Format = iota

	// FormatSparse is a sparse extent with an embedded descriptor.
	FormatSparse

	// FormatDescriptorOnly is a plain text descriptor file.
	FormatDescriptorOnly
)

func (f Format) String() string {
	switch f {
	case FormatSparse:
		return "sparse"
	case FormatDescriptorOnly:
		return "descriptor"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the format name.
func (f Format) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// DiskDescription is the combined result of reading one VMDK file:
// the decoded binary header when the file is a sparse extent, and the
// parsed descriptor when one was found. Both are nil for FormatUnknown.
type DiskDescription struct {
	Path       string              `json:"path,omitempty"`
	Format     Format              `json:"format"`
	Header     *SparseExtentHeader `json:"header,omitempty"`
	Descriptor *Descriptor         `json:"descriptor,omitempty"`
}

// Reader reads the metadata of a single VMDK file. It owns its
// SectorStore for the life of the reader and caches the header and
// descriptor after the first Describe call. A Reader is not safe for
// concurrent use; open one reader per goroutine instead.
type Reader struct {
	store *SectorStore
	path  string

	probed bool
	format Format
	header *SparseExtentHeader
	desc   *Descriptor
}

// Open opens the VMDK file at path.
func Open(path string) (*Reader, error) {
	store, err := OpenSectorStore(path)
	if err != nil {
		return nil, err
	}
	return &Reader{store: store, path: path}, nil
}

// NewReader wraps an already-open seekable source. The caller keeps
// ownership of the source.
func NewReader(store *SectorStore) *Reader {
	return &Reader{store: store}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.store.Close()
}

// Describe probes the file on first use and returns the combined disk
// description. For an unrecognized format the description is empty
// apart from Path and Format.
func (r *Reader) Describe() (*DiskDescription, error) {
	if err := r.probe(); err != nil {
		return nil, err
	}
	return &DiskDescription{
		Path:       r.path,
		Format:     r.format,
		Header:     r.header,
		Descriptor: r.desc,
	}, nil
}

// Header returns the decoded sparse extent header, or nil when the file
// has none.
func (r *Reader) Header() (*SparseExtentHeader, error) {
	if err := r.probe(); err != nil {
		return nil, err
	}
	return r.header, nil
}

// Descriptor returns the parsed descriptor, or nil when the file format
// was not recognized.
func (r *Reader) Descriptor() (*Descriptor, error) {
	if err := r.probe(); err != nil {
		return nil, err
	}
	return r.desc, nil
}

// probe runs the fixed three-state walk: read sector 0; a binary magic
// leads to the embedded descriptor via the decoded header, the
// descriptor signature text leads to reading the rest of the file, and
// anything else is left unrecognized. The order is forced by the
// formats: the embedded descriptor's location is only known after
// decoding the header, and the signature check is the only reliable
// discriminator between the two documents.
func (r *Reader) probe() error {
	if r.probed {
		return nil
	}

	sector, err := r.store.ReadSector(0)
	if err != nil {
		return NewFormatError(err, "probe", r.path)
	}

	switch {
	case HasSparseMagic(sector):
		if err := r.readEmbedded(sector); err != nil {
			return err
		}
	case bytes.HasPrefix(sector, []byte(DescriptorSignature)):
		if err := r.readStandalone(sector); err != nil {
			return err
		}
	default:
		r.format = FormatUnknown
	}

	r.probed = true
	return nil
}

func (r *Reader) readEmbedded(sector []byte) error {
	header, err := DecodeSparseExtentHeader(sector)
	if err != nil {
		return NewFormatError(err, "decode sparse header", r.path)
	}
	if header.DescriptorSize == 0 {
		return NewFormatError(ErrDescriptorMissing, "locate descriptor", r.path)
	}
	if header.DescriptorSize > maxDescriptorSectors {
		return NewFormatError(ErrDescriptorTooLarge, "locate descriptor", r.path)
	}

	blob, err := r.store.ReadSectors(header.DescriptorOffset, int(header.DescriptorSize))
	if err != nil {
		return NewFormatError(err, "read descriptor", r.path)
	}

	// descriptor sectors are NUL-padded to the declared size
	r.header = header
	r.desc = ParseDescriptor(bytes.TrimRight(blob, "\x00"))
	r.format = FormatSparse
	return nil
}

func (r *Reader) readStandalone(sector []byte) error {
	rest, err := r.store.ReadRemainder(int64(len(sector)))
	if err != nil {
		return NewFormatError(err, "read descriptor", r.path)
	}
	blob := append(append([]byte(nil), sector...), rest...)
	r.desc = ParseDescriptor(blob)
	r.format = FormatDescriptorOnly
	return nil
}
