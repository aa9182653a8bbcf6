package vmdk

import (
	"regexp"
	"strconv"
	"strings"
)

// DdbPrefix routes descriptor keys into the disk database tree.
const DdbPrefix = "ddb."

// NoParentCID is the parentCID value of a disk without a parent.
const NoParentCID uint32 = 0xffffffff

// Extent is one extent description line of a descriptor. Offset is nil
// when the line carried no trailing offset; document order is preserved
// in Descriptor.Extents because chain position is meaningful for
// multi-extent disks.
type Extent struct {
	Access   string  `json:"access"`
	Sectors  uint64  `json:"sectors"`
	Type     string  `json:"type"`
	Filename string  `json:"filename"`
	Offset   *uint64 `json:"offset,omitempty"`
}

// Descriptor is the parsed form of a descriptor document. CID and
// ParentCID hold the integer value of their hexadecimal text and are nil
// when the line is missing or malformed; every other key=value line is
// kept verbatim in Attributes, except ddb.* keys, which build the DDB
// tree. Immutable after parsing.
type Descriptor struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	CID        *uint32           `json:"cid,omitempty"`
	ParentCID  *uint32           `json:"parentCID,omitempty"`
	Extents    []Extent          `json:"extents,omitempty"`
	DDB        *DdbNode          `json:"ddb,omitempty"`
}

var (
	// key = value, value optionally double-quoted. Quotes are stripped,
	// nothing inside them is unescaped.
	kvPattern = regexp.MustCompile(`^\s*([A-Za-z0-9_.\-:]+)\s*=\s*(.*?)\s*$`)

	// <access> <sectors> <type> "<filename>" [<offset>]
	extentPattern = regexp.MustCompile(`^\s*([A-Za-z]+)\s+(\d+)\s+([A-Za-z]+)\s+"([^"]*)"(?:\s+(\d+))?\s*$`)

	linePattern = regexp.MustCompile(`[\r\n]+`)
)

// ParseDescriptor parses a descriptor blob. The blob is treated as a
// byte-per-character document, so no input can fail to decode; lines
// matching neither the key/value nor the extent grammar (comments, blank
// lines, free text) are silently skipped. ParseDescriptor therefore
// never fails: the worst malformed input yields an empty descriptor.
func ParseDescriptor(blob []byte) *Descriptor {
	d := &Descriptor{
		Attributes: map[string]string{},
		DDB:        NewDdbTree(),
	}

	for _, line := range linePattern.Split(string(blob), -1) {
		if m := kvPattern.FindStringSubmatch(line); m != nil {
			d.addKeyValue(m[1], unquote(m[2]))
			continue
		}
		if m := extentPattern.FindStringSubmatch(line); m != nil {
			d.addExtent(m)
		}
	}
	return d
}

func (d *Descriptor) addKeyValue(key, value string) {
	switch {
	case strings.HasPrefix(key, DdbPrefix):
		path := strings.Split(strings.TrimPrefix(key, DdbPrefix), ".")
		d.DDB.set(path, value)
	case key == "CID":
		d.CID = parseHexCID(value)
	case key == "parentCID":
		d.ParentCID = parseHexCID(value)
	default:
		d.Attributes[key] = value
	}
}

func (d *Descriptor) addExtent(m []string) {
	// sectors already matched \d+, so parse failures can only come from
	// values that overflow uint64; skip the line like any other mismatch
	sectors, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return
	}
	ext := Extent{
		Access:   m[1],
		Sectors:  sectors,
		Type:     m[3],
		Filename: m[4],
	}
	if m[5] != "" {
		offset, err := strconv.ParseUint(m[5], 10, 64)
		if err != nil {
			return
		}
		ext.Offset = &offset
	}
	d.Extents = append(d.Extents, ext)
}

// HasParent reports whether the descriptor names a live parent disk.
func (d *Descriptor) HasParent() bool {
	return d.ParentCID != nil && *d.ParentCID != NoParentCID
}

// CreateType returns the createType attribute, or "".
func (d *Descriptor) CreateType() string {
	return d.Attributes["createType"]
}

// ParentFileNameHint returns the parent path hint attribute, or "".
func (d *Descriptor) ParentFileNameHint() string {
	return d.Attributes["parentFileNameHint"]
}

// TotalSectors sums the sectors of all extents.
func (d *Descriptor) TotalSectors() uint64 {
	var total uint64
	for _, ext := range d.Extents {
		total += ext.Sectors
	}
	return total
}

func parseHexCID(value string) *uint32 {
	cid, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return nil
	}
	out := uint32(cid)
	return &out
}

func unquote(value string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return value[1 : len(value)-1]
	}
	return value
}
