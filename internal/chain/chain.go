// Package chain resolves snapshot parent chains. Starting from one
// VMDK file it follows parentCID links until it reaches a disk with no
// parent, verifying at each hop that the parent's CID matches what the
// child recorded.
package chain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goburrow/cache"

	"github.com/deploymenttheory/go-vmdk-inspect/internal/vmdk"
)

// ErrParentNotFound is returned when a child references a parent that
// cannot be located next to it.
var ErrParentNotFound = errors.New("parent disk not found")

// ErrCIDMismatch is returned when a located parent's CID does not match
// the child's parentCID, which usually means the parent was modified
// after the snapshot was taken.
var ErrCIDMismatch = errors.New("parent CID mismatch")

// DefaultCacheSize bounds the description cache when the caller does
// not configure one.
const DefaultCacheSize = 64

// Link is one disk in a resolved chain, child first.
type Link struct {
	Path       string  `json:"path"`
	CreateType string  `json:"createType,omitempty"`
	CID        *uint32 `json:"cid,omitempty"`
	ParentCID  *uint32 `json:"parentCID,omitempty"`

	// Description is retained for callers that need the full decode.
	Description *vmdk.DiskDescription `json:"-"`
}

// Resolver walks snapshot chains. Descriptions are loaded through a
// size-bounded cache so shared parents across overlapping chains are
// decoded once.
type Resolver struct {
	descriptions cache.LoadingCache
}

// NewResolver builds a resolver whose description cache holds up to
// cacheSize entries.
func NewResolver(cacheSize int) *Resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	r := &Resolver{}
	r.descriptions = cache.NewLoadingCache(
		loadDescription,
		cache.WithMaximumSize(cacheSize),
	)
	return r
}

// Close releases the description cache.
func (r *Resolver) Close() error {
	return r.descriptions.Close()
}

func loadDescription(key cache.Key) (cache.Value, error) {
	rd, err := vmdk.Open(key.(string))
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return rd.Describe()
}

func (r *Resolver) describe(path string) (*vmdk.DiskDescription, error) {
	value, err := r.descriptions.Get(path)
	if err != nil {
		return nil, err
	}
	return value.(*vmdk.DiskDescription), nil
}

// Resolve walks the chain starting at path and returns the links in
// child-to-root order. On a broken chain (missing parent, CID
// mismatch, cycle) it returns the links resolved so far together with
// the error, so callers can still report the healthy part.
func (r *Resolver) Resolve(path string) ([]Link, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	var links []Link
	visited := make(map[string]bool)
	for {
		if visited[current] {
			return links, fmt.Errorf("snapshot chain cycles back to %s", current)
		}
		visited[current] = true

		desc, err := r.describe(current)
		if err != nil {
			return links, err
		}
		if desc.Descriptor == nil {
			return links, fmt.Errorf("%s: not a recognized VMDK file", current)
		}

		d := desc.Descriptor
		links = append(links, Link{
			Path:        current,
			CreateType:  d.CreateType(),
			CID:         d.CID,
			ParentCID:   d.ParentCID,
			Description: desc,
		})
		if !d.HasParent() {
			return links, nil
		}

		parent, err := r.findParent(current, d)
		if err != nil {
			return links, err
		}
		current = parent
	}
}

// findParent locates the parent disk of a child. The descriptor's
// parentFileNameHint is tried first, resolved against the child's
// directory when relative. Without a usable hint the child's directory
// is scanned for a VMDK whose CID matches the child's parentCID.
func (r *Resolver) findParent(childPath string, d *vmdk.Descriptor) (string, error) {
	dir := filepath.Dir(childPath)

	if hint := d.ParentFileNameHint(); hint != "" {
		parent := hint
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(dir, parent)
		}
		desc, err := r.describe(parent)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrParentNotFound, parent, err)
		}
		if err := verifyParent(desc, d); err != nil {
			return "", fmt.Errorf("%s: %w", parent, err)
		}
		return parent, nil
	}

	return r.scanForParent(dir, childPath, d)
}

// scanForParent looks through dir for a VMDK whose CID matches the
// child's parentCID. Files that fail to decode are skipped.
func (r *Resolver) scanForParent(dir, childPath string, d *vmdk.Descriptor) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".vmdk") {
			continue
		}
		candidate := filepath.Join(dir, entry.Name())
		if candidate == childPath {
			continue
		}
		desc, err := r.describe(candidate)
		if err != nil || desc.Descriptor == nil {
			continue
		}
		if verifyParent(desc, d) == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no disk in %s has CID %08x",
		ErrParentNotFound, dir, *d.ParentCID)
}

func verifyParent(parent *vmdk.DiskDescription, child *vmdk.Descriptor) error {
	if parent.Descriptor == nil || parent.Descriptor.CID == nil {
		return fmt.Errorf("%w: parent has no CID", ErrCIDMismatch)
	}
	if *parent.Descriptor.CID != *child.ParentCID {
		return fmt.Errorf("%w: parent CID %08x, child expects %08x",
			ErrCIDMismatch, *parent.Descriptor.CID, *child.ParentCID)
	}
	return nil
}
