package vmdk

import (
	"reflect"
	"strings"
	"testing"
)

func TestDdbSetAndLookup(t *testing.T) {
	tree := NewDdbTree()
	tree.set([]string{"adapterType"}, "ide")
	tree.set([]string{"geometry", "heads"}, "16")
	tree.set([]string{"geometry", "sectors"}, "63")

	if got, ok := tree.Lookup("adapterType"); !ok || got != "ide" {
		t.Errorf("Lookup(adapterType) = %q, %v", got, ok)
	}
	if got, ok := tree.Lookup("geometry", "heads"); !ok || got != "16" {
		t.Errorf("Lookup(geometry, heads) = %q, %v", got, ok)
	}
	if _, ok := tree.Lookup("geometry", "cylinders"); ok {
		t.Error("Lookup of missing path reported ok")
	}
	if _, ok := tree.Lookup("adapterType", "deeper"); ok {
		t.Error("Lookup through a leaf reported ok")
	}
}

func TestDdbRelocationIsOrderIndependent(t *testing.T) {
	forward := NewDdbTree()
	forward.set([]string{"x"}, "v")
	forward.set([]string{"x", "y"}, "w")

	reverse := NewDdbTree()
	reverse.set([]string{"x", "y"}, "w")
	reverse.set([]string{"x"}, "v")

	if !reflect.DeepEqual(forward.ToMap(), reverse.ToMap()) {
		t.Errorf("trees differ by arrival order:\n forward %v\n reverse %v",
			forward.ToMap(), reverse.ToMap())
	}

	want := map[string]interface{}{
		"x": map[string]interface{}{"": "v", "y": "w"},
	}
	if !reflect.DeepEqual(forward.ToMap(), want) {
		t.Errorf("ToMap() = %v, want %v", forward.ToMap(), want)
	}
}

func TestDdbWalkSortedLeaves(t *testing.T) {
	tree := NewDdbTree()
	tree.set([]string{"geometry", "sectors"}, "63")
	tree.set([]string{"adapterType"}, "ide")
	tree.set([]string{"geometry", "heads"}, "16")

	var visited []string
	tree.Walk(func(path []string, value string) {
		visited = append(visited, strings.Join(path, ".")+"="+value)
	})

	want := []string{"adapterType=ide", "geometry.heads=16", "geometry.sectors=63"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("Walk order = %v, want %v", visited, want)
	}
}
