package vmdk

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// writeSectorFile fills n sectors, each stamped with its index byte.
func writeSectorFile(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sectors.bin")
	data := make([]byte, n*SectorSize)
	for i := 0; i < n; i++ {
		for j := 0; j < SectorSize; j++ {
			data[i*SectorSize+j] = byte(i)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSectorStoreReadSectors(t *testing.T) {
	store, err := OpenSectorStore(writeSectorFile(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	buf, err := store.ReadSectors(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 2*SectorSize {
		t.Fatalf("got %d bytes, want %d", len(buf), 2*SectorSize)
	}
	if buf[0] != 1 || buf[SectorSize] != 2 {
		t.Errorf("sector content = %d, %d; want 1, 2", buf[0], buf[SectorSize])
	}
}

func TestSectorStorePreservesCursor(t *testing.T) {
	f, err := os.Open(writeSectorFile(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// position the shared handle mid-file, then read through the store
	const pos = 100
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	store := NewSectorStore(f)
	if _, err := store.ReadSectors(2, 1); err != nil {
		t.Fatal(err)
	}

	got, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatal(err)
	}
	if got != pos {
		t.Errorf("cursor moved to %d, want %d", got, pos)
	}
}

func TestSectorStoreShortReadAtEOF(t *testing.T) {
	store, err := OpenSectorStore(writeSectorFile(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	// read past the end: short, not an error
	buf, err := store.ReadSectors(1, 4)
	if err != nil {
		t.Fatalf("short read returned error: %v", err)
	}
	if len(buf) != SectorSize {
		t.Errorf("got %d bytes, want %d", len(buf), SectorSize)
	}

	// read entirely beyond the end: empty, not an error
	buf, err = store.ReadSectors(10, 1)
	if err != nil {
		t.Fatalf("past-EOF read returned error: %v", err)
	}
	if len(buf) != 0 {
		t.Errorf("got %d bytes, want 0", len(buf))
	}
}

func TestSectorStoreReadRemainder(t *testing.T) {
	store, err := OpenSectorStore(writeSectorFile(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rest, err := store.ReadRemainder(SectorSize)
	if err != nil {
		t.Fatal(err)
	}
	want := bytes.Repeat([]byte{1}, SectorSize)
	if !bytes.Equal(rest, want) {
		t.Errorf("remainder length = %d, want %d sector of 1s", len(rest), SectorSize)
	}
}

func TestSectorStoreRejectsBadCount(t *testing.T) {
	store, err := OpenSectorStore(writeSectorFile(t, 1))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.ReadSectors(0, 0); err == nil {
		t.Error("count 0 accepted")
	}
}

func TestOpenSectorStoreMissingFile(t *testing.T) {
	_, err := OpenSectorStore(filepath.Join(t.TempDir(), "absent.vmdk"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
