package addrspace

import (
	"testing"

	"github.com/gopcua/opcua/ua"
)

func TestLookupByNodeID(t *testing.T) {
	ix := Bootstrap()

	n := ix.LookupByNodeID(ua.NewNumericNodeID(1, 3))
	if n == nil {
		t.Fatal("LookupByNodeID() = nil, want Device1 node")
	}
	if n.BrowseName != "Device1" {
		t.Errorf("BrowseName = %q, want Device1", n.BrowseName)
	}

	if got := ix.LookupByNodeID(ua.NewNumericNodeID(1, 999)); got != nil {
		t.Errorf("LookupByNodeID(unknown) = %v, want nil", got)
	}

	if got := ix.LookupByNodeID(nil); got != nil {
		t.Errorf("LookupByNodeID(nil) = %v, want nil", got)
	}
}

func TestLookupChildByBrowseName(t *testing.T) {
	ix := Bootstrap()
	device1 := ix.LookupByNodeID(ua.NewNumericNodeID(1, 3))

	child := ix.LookupChildByBrowseName(device1, "Temperature")
	if child == nil {
		t.Fatal("LookupChildByBrowseName() = nil, want Temperature")
	}
	if !child.Variable() {
		t.Errorf("Temperature node class = %v, want Variable", child.NodeClass)
	}

	if got := ix.LookupChildByBrowseName(device1, "NoSuchChild"); got != nil {
		t.Errorf("LookupChildByBrowseName(unknown) = %v, want nil", got)
	}

	root := ix.LookupChildByBrowseName(nil, "Root")
	if root == nil {
		t.Fatal("LookupChildByBrowseName(nil, Root) = nil, want root object")
	}
}

func TestIsSubtypeWildcardAndExact(t *testing.T) {
	ix := Bootstrap()

	if !ix.IsSubtype(ReferenceTypeHasComponent, ua.NewNumericNodeID(0, 0), false) {
		t.Error("IsSubtype with zero ancestor should always match (wildcard)")
	}

	if !ix.IsSubtype(ReferenceTypeHasComponent, ReferenceTypeHasComponent, false) {
		t.Error("IsSubtype with candidate == ancestor should match without includeSubtypes")
	}

	if ix.IsSubtype(ReferenceTypeHasProperty, ReferenceTypeHasComponent, false) {
		t.Error("IsSubtype without includeSubtypes should not traverse HasSubtype")
	}
}

func TestIsSubtypeTransitive(t *testing.T) {
	ix := Bootstrap()

	// HasProperty is a HasSubtype of HasComponent, which is itself a
	// HasSubtype of HierarchicalReferences.
	if !ix.IsSubtype(ReferenceTypeHasProperty, ReferenceTypeHierarchicalRef, true) {
		t.Error("IsSubtype(HasProperty, HierarchicalReferences, true) = false, want true")
	}
	if !ix.IsSubtype(ReferenceTypeHasComponent, ReferenceTypeHierarchicalRef, true) {
		t.Error("IsSubtype(HasComponent, HierarchicalReferences, true) = false, want true")
	}
	if ix.IsSubtype(ReferenceTypeHasTypeDef, ReferenceTypeHierarchicalRef, true) {
		t.Error("HasTypeDefinition is not hierarchical, IsSubtype should be false")
	}
}

func TestIsSubtypeCyclicGraphTerminates(t *testing.T) {
	a := ua.NewNumericNodeID(2, 1)
	b := ua.NewNumericNodeID(2, 2)
	nodeA := &Node{NodeID: a, NodeClass: ua.NodeClassReferenceType, BrowseName: "A"}
	nodeB := &Node{NodeID: b, NodeClass: ua.NodeClassReferenceType, BrowseName: "B"}
	nodeA.References = []*Reference{ref(ReferenceTypeHasSubtype, b, false)}
	nodeB.References = []*Reference{ref(ReferenceTypeHasSubtype, a, false)}

	ix := NewIndex(nil, nil, []*Node{nodeA, nodeB}, nil, nil, nil)

	// A and B reference each other; without a visited-set guard this would
	// recurse forever instead of returning false.
	unrelated := ua.NewNumericNodeID(2, 3)
	if ix.IsSubtype(a, unrelated, true) {
		t.Error("IsSubtype on a cyclic graph with no path to the ancestor should return false")
	}
}
