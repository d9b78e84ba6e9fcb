package addrspace

import "github.com/gopcua/opcua/ua"

// Well-known reference type ids, matching the numeric identifiers OPC UA
// Part 3 assigns in namespace 0.
var (
	ReferenceTypeOrganizes       = ua.NewNumericNodeID(0, 35)
	ReferenceTypeHasComponent    = ua.NewNumericNodeID(0, 47)
	ReferenceTypeHasProperty     = ua.NewNumericNodeID(0, 46)
	ReferenceTypeHasTypeDef      = ua.NewNumericNodeID(0, 40)
	ReferenceTypeHasSubtype      = ua.NewNumericNodeID(0, 45)
	ReferenceTypeHierarchicalRef = ua.NewNumericNodeID(0, 33)
)

func ref(refType *ua.NodeID, target *ua.NodeID, inverse bool) *Reference {
	return &Reference{ReferenceTypeID: refType, TargetNodeID: target, IsInverse: inverse}
}

// Bootstrap returns a small, self-contained node set covering every
// NodeClass the Browse and Subscription services need to exercise:
// an ObjectType/VariableType pair, an object tree three levels deep,
// variables whose Value starts as an empty Variant, and a HasSubtype chain of
// ReferenceTypes rooted at HierarchicalReferences. It plays the role the
// AnsiC sample's addressspace_init.h fixtures play: a real but minimal
// address space an engine can be built and tested against.
func Bootstrap() *Index {
	idObjectType := ua.NewNumericNodeID(0, 1000)
	idVariableType := ua.NewNumericNodeID(0, 1001)

	idRoot := ua.NewNumericNodeID(1, 1)
	idDevices := ua.NewNumericNodeID(1, 2)
	idDevice1 := ua.NewNumericNodeID(1, 3)
	idDevice1Temperature := ua.NewNumericNodeID(1, 4)
	idDevice1Status := ua.NewNumericNodeID(1, 5)

	idRefHierarchical := ReferenceTypeHierarchicalRef
	idRefOrganizes := ReferenceTypeOrganizes
	idRefHasComponent := ReferenceTypeHasComponent
	idRefHasProperty := ReferenceTypeHasProperty
	idRefHasTypeDef := ReferenceTypeHasTypeDef
	idRefHasSubtype := ReferenceTypeHasSubtype

	objectType := &Node{
		NodeID:      idObjectType,
		NodeClass:   ua.NodeClassObjectType,
		BrowseName:  "DeviceType",
		DisplayName: "DeviceType",
	}
	variableType := &Node{
		NodeID:      idVariableType,
		NodeClass:   ua.NodeClassVariableType,
		BrowseName:  "AnalogItemType",
		DisplayName: "AnalogItemType",
	}

	root := &Node{
		NodeID:      idRoot,
		NodeClass:   ua.NodeClassObject,
		BrowseName:  "Root",
		DisplayName: "Root",
		References: []*Reference{
			ref(idRefOrganizes, idDevices, false),
		},
	}
	devices := &Node{
		NodeID:      idDevices,
		NodeClass:   ua.NodeClassObject,
		BrowseName:  "Devices",
		DisplayName: "Devices",
		References: []*Reference{
			ref(idRefOrganizes, idRoot, true),
			ref(idRefOrganizes, idDevice1, false),
		},
	}
	device1 := &Node{
		NodeID:      idDevice1,
		NodeClass:   ua.NodeClassObject,
		BrowseName:  "Device1",
		DisplayName: "Device 1",
		References: []*Reference{
			ref(idRefOrganizes, idDevices, true),
			ref(idRefHasTypeDef, idObjectType, false),
			ref(idRefHasComponent, idDevice1Temperature, false),
			ref(idRefHasComponent, idDevice1Status, false),
		},
	}
	temperature := &Node{
		NodeID:      idDevice1Temperature,
		NodeClass:   ua.NodeClassVariable,
		BrowseName:  "Temperature",
		DisplayName: "Temperature",
		Value:       &ua.Variant{},
		References: []*Reference{
			ref(idRefHasComponent, idDevice1, true),
			ref(idRefHasTypeDef, idVariableType, false),
			ref(idRefHasProperty, idDevice1Status, false),
		},
	}
	status := &Node{
		NodeID:      idDevice1Status,
		NodeClass:   ua.NodeClassVariable,
		BrowseName:  "Status",
		DisplayName: "Status",
		Value:       &ua.Variant{},
		References: []*Reference{
			ref(idRefHasComponent, idDevice1, true),
			ref(idRefHasTypeDef, idVariableType, false),
		},
	}

	refHierarchical := &Node{
		NodeID:      idRefHierarchical,
		NodeClass:   ua.NodeClassReferenceType,
		BrowseName:  "HierarchicalReferences",
		DisplayName: "HierarchicalReferences",
	}
	refOrganizes := &Node{
		NodeID:      idRefOrganizes,
		NodeClass:   ua.NodeClassReferenceType,
		BrowseName:  "Organizes",
		DisplayName: "Organizes",
		References:  []*Reference{ref(idRefHasSubtype, idRefHierarchical, true)},
	}
	refHasComponent := &Node{
		NodeID:      idRefHasComponent,
		NodeClass:   ua.NodeClassReferenceType,
		BrowseName:  "HasComponent",
		DisplayName: "HasComponent",
		References:  []*Reference{ref(idRefHasSubtype, idRefHierarchical, true)},
	}
	refHasProperty := &Node{
		NodeID:      idRefHasProperty,
		NodeClass:   ua.NodeClassReferenceType,
		BrowseName:  "HasProperty",
		DisplayName: "HasProperty",
		References:  []*Reference{ref(idRefHasSubtype, idRefHasComponent, true)},
	}
	refHasTypeDef := &Node{
		NodeID:      idRefHasTypeDef,
		NodeClass:   ua.NodeClassReferenceType,
		BrowseName:  "HasTypeDefinition",
		DisplayName: "HasTypeDefinition",
	}
	refHasSubtype := &Node{
		NodeID:      idRefHasSubtype,
		NodeClass:   ua.NodeClassReferenceType,
		BrowseName:  "HasSubtype",
		DisplayName: "HasSubtype",
		References:  []*Reference{ref(idRefHasSubtype, idRefHierarchical, true)},
	}

	objectTypes := []*Node{objectType}
	objects := []*Node{root, devices, device1}
	referenceTypes := []*Node{refHierarchical, refOrganizes, refHasComponent, refHasProperty, refHasTypeDef, refHasSubtype}
	variables := []*Node{temperature, status}
	variableTypes := []*Node{variableType}
	var dataTypes []*Node

	return NewIndex(objectTypes, objects, referenceTypes, variables, variableTypes, dataTypes)
}
