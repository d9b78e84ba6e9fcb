package translate

import (
	"math"
	"testing"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"

	"github.com/ioansiran/opcua-server/internal/addrspace"
)

func relativePath(names ...string) *ua.RelativePath {
	elems := make([]*ua.RelativePathElement, len(names))
	for i, n := range names {
		elems[i] = &ua.RelativePathElement{TargetName: &ua.QualifiedName{Name: n}}
	}
	return &ua.RelativePath{Elements: elems}
}

func TestTranslateSuccess(t *testing.T) {
	svc := NewService(addrspace.Bootstrap())

	results := svc.Translate([]*ua.BrowsePath{
		{
			StartingNode: ua.NewNumericNodeID(1, 1), // Root
			RelativePath: relativePath("Devices", "Device1", "Temperature"),
		},
	})

	assert.Len(t, results, 1)
	assert.Equal(t, ua.StatusOK, results[0].StatusCode)
	assert.Len(t, results[0].Targets, 1)
	assert.Equal(t, uint32(math.MaxUint32), results[0].Targets[0].RemainingPathIndex)
	assert.Equal(t, ua.NewNumericNodeID(1, 4).String(), results[0].Targets[0].TargetID.NodeID.String())
}

func TestTranslateBadNoMatch(t *testing.T) {
	svc := NewService(addrspace.Bootstrap())

	results := svc.Translate([]*ua.BrowsePath{
		{
			StartingNode: ua.NewNumericNodeID(1, 1),
			RelativePath: relativePath("Devices", "NoSuchDevice"),
		},
	})

	assert.Equal(t, ua.StatusBadNoMatch, results[0].StatusCode)
	assert.Empty(t, results[0].Targets)
}

func TestTranslateUnknownStartingNode(t *testing.T) {
	svc := NewService(addrspace.Bootstrap())

	results := svc.Translate([]*ua.BrowsePath{
		{StartingNode: ua.NewNumericNodeID(9, 9999), RelativePath: relativePath("Anything")},
	})

	assert.Equal(t, ua.StatusBadNoMatch, results[0].StatusCode)
}
