package vmdk

import (
	"encoding/json"
	"sort"
)

// DdbNode is one node of the disk database tree built from
// "ddb.<path> = <value>" descriptor lines. A node is either a leaf
// carrying a value or an internal node with children, never both.
//
// When a path both carries a scalar and has deeper sub-paths, neither is
// dropped: the scalar lives under the empty-string child of the internal
// node. The same tree results regardless of which line came first.
type DdbNode struct {
	value    string
	children map[string]*DdbNode
}

// NewDdbTree returns an empty internal root node.
func NewDdbTree() *DdbNode {
	return &DdbNode{children: map[string]*DdbNode{}}
}

// IsLeaf reports whether the node carries a value rather than children.
func (n *DdbNode) IsLeaf() bool {
	return n.children == nil
}

// Value returns the leaf value. For an internal node it returns the
// value of the empty-string child, if any.
func (n *DdbNode) Value() string {
	if n.children == nil {
		return n.value
	}
	if relocated, ok := n.children[""]; ok {
		return relocated.value
	}
	return ""
}

// Child returns the named child of an internal node, or nil.
func (n *DdbNode) Child(segment string) *DdbNode {
	return n.children[segment]
}

// Len returns the number of children of an internal node.
func (n *DdbNode) Len() int {
	return len(n.children)
}

// Lookup walks the dot-path segments and returns the value found there.
// A path ending on an internal node resolves to its relocated scalar.
func (n *DdbNode) Lookup(path ...string) (string, bool) {
	node := n
	for _, segment := range path {
		if node.children == nil {
			return "", false
		}
		next, ok := node.children[segment]
		if !ok {
			return "", false
		}
		node = next
	}
	if node.IsLeaf() {
		return node.value, true
	}
	if relocated, ok := node.children[""]; ok {
		return relocated.value, true
	}
	return "", false
}

// set stores value at path, creating intermediate nodes as needed.
// A leaf found in the middle of the path becomes an internal node with
// its former scalar under the empty-string child; a scalar arriving for
// a path that is already internal lands in the same place.
func (n *DdbNode) set(path []string, value string) {
	node := n
	for _, segment := range path {
		if node.children == nil {
			node.children = map[string]*DdbNode{}
			if node.value != "" {
				node.children[""] = &DdbNode{value: node.value}
				node.value = ""
			}
		}
		child, ok := node.children[segment]
		if !ok {
			child = &DdbNode{}
			node.children[segment] = child
		}
		node = child
	}
	if node.children != nil {
		node.children[""] = &DdbNode{value: value}
		return
	}
	node.value = value
}

// Walk visits every leaf in segment-sorted order, calling fn with the
// full path from the root and the leaf value.
func (n *DdbNode) Walk(fn func(path []string, value string)) {
	n.walk(nil, fn)
}

func (n *DdbNode) walk(prefix []string, fn func(path []string, value string)) {
	if n.children == nil {
		fn(prefix, n.value)
		return
	}
	segments := make([]string, 0, len(n.children))
	for segment := range n.children {
		segments = append(segments, segment)
	}
	sort.Strings(segments)
	for _, segment := range segments {
		path := append(append([]string(nil), prefix...), segment)
		n.children[segment].walk(path, fn)
	}
}

// ToMap renders the tree as nested maps with string leaves, suitable for
// generic serialization.
func (n *DdbNode) ToMap() interface{} {
	if n.children == nil {
		return n.value
	}
	m := make(map[string]interface{}, len(n.children))
	for segment, child := range n.children {
		m[segment] = child.ToMap()
	}
	return m
}

// MarshalJSON serializes the tree through ToMap.
func (n *DdbNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ToMap())
}
