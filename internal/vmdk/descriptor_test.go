package vmdk

import (
	"testing"
)

const sampleDescriptor = `# Disk DescriptorFile
version=1
encoding="UTF-8"
CID=12345678
parentCID=ffffffff
createType="twoGbMaxExtentSparse"

# Extent description
RW 2097152 SPARSE "disk-s001.vmdk"
RW 2097152 FLAT "disk-f001.vmdk" 0
RW 8192 SPARSE "disk-s002.vmdk"

# The Disk Data Base
#DDB

ddb.adapterType = "lsilogic"
ddb.geometry.cylinders = "1044"
ddb.geometry.heads = "255"
ddb.geometry.sectors = "63"
ddb.virtualHWVersion = "4"
`

func TestParseDescriptorScalars(t *testing.T) {
	d := ParseDescriptor([]byte(sampleDescriptor))

	if got := d.Attributes["version"]; got != "1" {
		t.Errorf("version = %q, want %q", got, "1")
	}
	if got := d.Attributes["encoding"]; got != "UTF-8" {
		t.Errorf("encoding = %q, want %q (quotes must be stripped)", got, "UTF-8")
	}
	if got := d.CreateType(); got != "twoGbMaxExtentSparse" {
		t.Errorf("createType = %q", got)
	}

	if d.CID == nil || *d.CID != 305419896 {
		t.Errorf("CID = %v, want 305419896 (hex 12345678)", d.CID)
	}
	if d.ParentCID == nil || *d.ParentCID != NoParentCID {
		t.Errorf("parentCID = %v, want 0xffffffff", d.ParentCID)
	}
	if d.HasParent() {
		t.Error("HasParent() = true for parentCID ffffffff")
	}
}

func TestParseDescriptorExtents(t *testing.T) {
	d := ParseDescriptor([]byte(sampleDescriptor))

	if len(d.Extents) != 3 {
		t.Fatalf("got %d extents, want 3", len(d.Extents))
	}

	sparse := d.Extents[0]
	if sparse.Access != "RW" || sparse.Sectors != 2097152 || sparse.Type != "SPARSE" ||
		sparse.Filename != "disk-s001.vmdk" {
		t.Errorf("sparse extent = %+v", sparse)
	}
	if sparse.Offset != nil {
		t.Errorf("sparse extent offset = %v, want absent", *sparse.Offset)
	}

	flat := d.Extents[1]
	if flat.Sectors != 2097152 || flat.Type != "FLAT" || flat.Filename != "disk-f001.vmdk" {
		t.Errorf("flat extent = %+v", flat)
	}
	if flat.Offset == nil || *flat.Offset != 0 {
		t.Errorf("flat extent offset = %v, want 0", flat.Offset)
	}

	if got := d.TotalSectors(); got != 2097152+2097152+8192 {
		t.Errorf("TotalSectors() = %d", got)
	}
}

func TestParseDescriptorDdbTree(t *testing.T) {
	d := ParseDescriptor([]byte(sampleDescriptor))

	if got, ok := d.DDB.Lookup("adapterType"); !ok || got != "lsilogic" {
		t.Errorf("ddb.adapterType = %q, %v", got, ok)
	}
	if got, ok := d.DDB.Lookup("geometry", "cylinders"); !ok || got != "1044" {
		t.Errorf("ddb.geometry.cylinders = %q, %v", got, ok)
	}

	geometry := d.DDB.Child("geometry")
	if geometry == nil || geometry.IsLeaf() || geometry.Len() != 3 {
		t.Errorf("ddb.geometry node = %+v", geometry)
	}
}

func TestParseDescriptorDdbConflictBothOrders(t *testing.T) {
	scalarFirst := "ddb.a = \"1\"\nddb.a.b = \"2\"\n"
	subkeyFirst := "ddb.a.b = \"2\"\nddb.a = \"1\"\n"

	for _, tt := range []struct {
		name string
		doc  string
	}{
		{"scalar first", scalarFirst},
		{"subkey first", subkeyFirst},
	} {
		d := ParseDescriptor([]byte(tt.doc))
		a := d.DDB.Child("a")
		if a == nil || a.IsLeaf() {
			t.Fatalf("%s: ddb.a should be an internal node", tt.name)
		}
		if relocated := a.Child(""); relocated == nil || relocated.Value() != "1" {
			t.Errorf("%s: ddb.a[\"\"] = %v, want leaf \"1\"", tt.name, relocated)
		}
		if b := a.Child("b"); b == nil || b.Value() != "2" {
			t.Errorf("%s: ddb.a.b = %v, want leaf \"2\"", tt.name, b)
		}
		// an internal node still resolves to its relocated scalar
		if got, ok := d.DDB.Lookup("a"); !ok || got != "1" {
			t.Errorf("%s: Lookup(a) = %q, %v", tt.name, got, ok)
		}
	}
}

func TestParseDescriptorMalformedCID(t *testing.T) {
	d := ParseDescriptor([]byte("CID=notahexnumber\n"))
	if d.CID != nil {
		t.Errorf("malformed CID parsed to %v, want absent", *d.CID)
	}
	d = ParseDescriptor([]byte("version=1\n"))
	if d.CID != nil {
		t.Errorf("missing CID parsed to %v, want absent", *d.CID)
	}
}

func TestParseDescriptorSkipsUnparsableLines(t *testing.T) {
	doc := "# a comment\n\r\n\nnot a parsable line at all\nRW oops SPARSE \"x\"\nversion=1\n"
	d := ParseDescriptor([]byte(doc))

	if len(d.Extents) != 0 {
		t.Errorf("junk extent line parsed: %+v", d.Extents)
	}
	if got := d.Attributes["version"]; got != "1" {
		t.Errorf("version = %q, want %q", got, "1")
	}
	if len(d.Attributes) != 1 {
		t.Errorf("attributes = %v, want only version", d.Attributes)
	}
}

func TestParseDescriptorCRLFMix(t *testing.T) {
	doc := "version=1\r\nCID=0000000a\rcreateType=\"monolithicSparse\"\nRW 8 SPARSE \"a.vmdk\"\r\n"
	d := ParseDescriptor([]byte(doc))

	if d.Attributes["version"] != "1" || d.CreateType() != "monolithicSparse" {
		t.Errorf("attributes = %v", d.Attributes)
	}
	if d.CID == nil || *d.CID != 10 {
		t.Errorf("CID = %v, want 10", d.CID)
	}
	if len(d.Extents) != 1 {
		t.Errorf("extents = %+v", d.Extents)
	}
}
