package addrspace

import "github.com/gopcua/opcua/ua"

// Index is the read-only node/reference graph built once at startup from
// the static address-space arrays. It needs no locking: nothing mutates it
// after construction, mirroring the AnsiC sample's all_ObjectNodes /
// all_VariableNodes / ... arrays searched by search_for_node.
type Index struct {
	// classes holds one slice per node class, in the precedence order
	// LookupByNodeID must search: ObjectType, Object, ReferenceType,
	// Variable, VariableType, DataType. The same numeric id may legally
	// appear in more than one class array; the first array that contains
	// it wins.
	classes [][]*Node
}

// NewIndex builds an Index from the per-class node arrays. Order of
// arguments fixes the lookup precedence described in spec §4.1.
func NewIndex(objectTypes, objects, referenceTypes, variables, variableTypes, dataTypes []*Node) *Index {
	return &Index{
		classes: [][]*Node{objectTypes, objects, referenceTypes, variables, variableTypes, dataTypes},
	}
}

// LookupByNodeID performs the linear, class-ordered search over the
// concatenated node arrays. Returns nil when no node matches.
func (ix *Index) LookupByNodeID(id *ua.NodeID) *Node {
	if id == nil {
		return nil
	}
	for _, nodes := range ix.classes {
		for _, n := range nodes {
			if idEqual(n.NodeID, id) {
				return n
			}
		}
	}
	return nil
}

// LookupChildByBrowseName returns the first reference target of parent
// whose browse name literally matches name. When parent is nil, it
// searches every class array, in LookupByNodeID's precedence order, and
// returns the first node with that browse name.
func (ix *Index) LookupChildByBrowseName(parent *Node, name string) *Node {
	if parent == nil {
		for _, nodes := range ix.classes {
			for _, n := range nodes {
				if n.BrowseName == name {
					return n
				}
			}
		}
		return nil
	}

	for _, ref := range parent.References {
		target := ix.LookupByNodeID(ref.TargetNodeID)
		if target == nil {
			continue
		}
		if target.BrowseName == name {
			return target
		}
	}
	return nil
}

// IsSubtype reports whether ancestor is reachable from candidate. It
// returns true unconditionally when candidate == ancestor, or when
// ancestor's numeric identifier is 0 ("any"). When includeSubtypes is
// false, only direct equality (or the "any" wildcard) counts. The walk
// carries a visited set so cyclic reference graphs terminate — absent from
// the original is_subnode, called out as an Open Question in spec §9.
func (ix *Index) IsSubtype(candidate, ancestor *ua.NodeID, includeSubtypes bool) bool {
	if isZeroNumeric(ancestor) {
		return true
	}
	if idEqual(candidate, ancestor) {
		return true
	}
	if !includeSubtypes {
		return false
	}
	return ix.reaches(candidate, ancestor, make(map[string]bool))
}

func (ix *Index) reaches(from, target *ua.NodeID, visited map[string]bool) bool {
	node := ix.LookupByNodeID(from)
	if node == nil {
		return false
	}
	key := from.String()
	if visited[key] {
		return false
	}
	visited[key] = true

	for _, ref := range node.References {
		if idEqual(ref.TargetNodeID, target) {
			return true
		}
		targetNode := ix.LookupByNodeID(ref.TargetNodeID)
		if targetNode == nil {
			// Referenced but absent: terminate this branch rather than
			// dereferencing a node that doesn't exist.
			continue
		}
		if len(targetNode.References) == 0 {
			continue
		}
		if ix.reaches(ref.TargetNodeID, target, visited) {
			return true
		}
	}
	return false
}
