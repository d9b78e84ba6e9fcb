// Package addrspace holds the in-memory, immutable node/reference graph
// the Browse, TranslateBrowsePathsToNodeIds, and Subscription services are
// resolved against.
package addrspace

import "github.com/gopcua/opcua/ua"

// Reference is a typed, directed edge between two nodes.
type Reference struct {
	ReferenceTypeID *ua.NodeID
	IsInverse       bool
	TargetNodeID    *ua.NodeID
}

// Node is one entry in the address space. NodeClass discriminates Object,
// ObjectType, Variable, VariableType, ReferenceType, DataType, Method, and
// View nodes; all variants share these attributes plus an ordered list of
// outgoing references.
type Node struct {
	NodeID      *ua.NodeID
	NodeClass   ua.NodeClass
	BrowseName  string
	DisplayName string
	References  []*Reference

	// Value is only meaningful for Variable nodes; it is read by the
	// Read-service collaborator (fill_data_value) and by the publish
	// scheduler's dirty-check loop, never by Browse.
	Value *ua.Variant
}

// Variable reports whether n is a Variable node; only Variable nodes carry
// a sampled value.
func (n *Node) Variable() bool {
	return n.NodeClass == ua.NodeClassVariable
}

func idEqual(a, b *ua.NodeID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// isZeroNumeric reports whether id is the numeric identifier 0 — the OPC UA
// convention for "any"/"none" used by reference-type filters and the
// continuation-point slot. Matches is_subnode's wildcard check in the
// reference implementation, which tests only the identifier and its type,
// not the namespace.
func isZeroNumeric(id *ua.NodeID) bool {
	if id == nil {
		return true
	}
	return id.Type() == ua.NodeIDTypeNumeric && id.IntID() == 0
}
