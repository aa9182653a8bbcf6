// Package vmdk decodes VMware virtual disk metadata without an external
// SDK: the 512-byte binary sparse extent header, the text descriptor
// document (attributes, extent list and ddb disk-database tree), and the
// combined disk description produced from either an embedded-descriptor
// sparse file or a descriptor-only file.
//
// The package only reads metadata. Grain directories, grain tables and
// grain data are out of scope.
package vmdk

import (
	"fmt"
	"io"
	"os"
)

// SectorSize is the fixed sector size used by all VMDK layouts.
const SectorSize = 512

// SectorStore exposes random-access, sector-aligned reads over a seekable
// byte source. Every read saves and restores the source's cursor, so
// callers may interleave sector reads with their own reads on the same
// handle without corrupting each other's position.
//
// A SectorStore is not safe for concurrent use.
type SectorStore struct {
	src    io.ReadSeeker
	closer io.Closer
}

// NewSectorStore wraps an already-open seekable source. The caller keeps
// ownership of the source; Close on the store is a no-op.
func NewSectorStore(src io.ReadSeeker) *SectorStore {
	return &SectorStore{src: src}
}

// OpenSectorStore opens path read-only and wraps it. The returned store
// owns the file handle and releases it on Close.
func OpenSectorStore(path string) (*SectorStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIOError, path, err)
	}
	return &SectorStore{src: f, closer: f}, nil
}

// ReadSector reads the single sector at index.
func (s *SectorStore) ReadSector(index uint64) ([]byte, error) {
	return s.ReadSectors(index, 1)
}

// ReadSectors reads count sectors starting at index. At end of file the
// returned buffer is short or empty rather than an error; every other
// failure is surfaced immediately and never retried.
func (s *SectorStore) ReadSectors(index uint64, count int) ([]byte, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: sector count %d", ErrIOError, count)
	}

	restore, err := s.saveCursor()
	if err != nil {
		return nil, err
	}
	defer restore()

	offset := int64(index) * SectorSize
	if _, err := s.src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek to sector %d: %v", ErrIOError, index, err)
	}

	buf := make([]byte, count*SectorSize)
	n, err := io.ReadFull(s.src, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return buf[:n], nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %d sectors at %d: %v", ErrIOError, count, index, err)
	}
	return buf, nil
}

// ReadRemainder reads from the given byte offset to end of file,
// preserving the cursor like ReadSectors does.
func (s *SectorStore) ReadRemainder(offset int64) ([]byte, error) {
	restore, err := s.saveCursor()
	if err != nil {
		return nil, err
	}
	defer restore()

	if _, err := s.src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek to offset %d: %v", ErrIOError, offset, err)
	}
	data, err := io.ReadAll(s.src)
	if err != nil {
		return nil, fmt.Errorf("%w: read remainder at %d: %v", ErrIOError, offset, err)
	}
	return data, nil
}

// Size returns the total size of the source in bytes.
func (s *SectorStore) Size() (int64, error) {
	restore, err := s.saveCursor()
	if err != nil {
		return 0, err
	}
	defer restore()

	size, err := s.src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: seek to end: %v", ErrIOError, err)
	}
	return size, nil
}

// Close releases the underlying file when the store owns it.
func (s *SectorStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *SectorStore) saveCursor() (func(), error) {
	pos, err := s.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: query cursor: %v", ErrIOError, err)
	}
	return func() { s.src.Seek(pos, io.SeekStart) }, nil
}
