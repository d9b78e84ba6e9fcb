package addrspace

import (
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/ioansiran/opcua-server/internal/transport"
)

// ValueReader implements transport.ValueReader by reading a Variable
// node's live Value field directly out of the index — fill_data_value in
// the reference sample does the same: "no copy, backed by the actual
// sampled value."
type ValueReader struct {
	index *Index
}

// NewValueReader builds a ValueReader over index.
func NewValueReader(index *Index) *ValueReader {
	return &ValueReader{index: index}
}

// FillDataValue returns the current value and quality of a Variable node.
// Timestamps are stamped at read time; ts selects which of
// SourceTimestamp/ServerTimestamp are populated.
func (r *ValueReader) FillDataValue(nodeID *ua.NodeID, ts ua.TimestampsToReturn) (*ua.DataValue, error) {
	node := r.index.LookupByNodeID(nodeID)
	if node == nil || !node.Variable() {
		return &ua.DataValue{EncodingMask: ua.DataValueStatusCode, Status: ua.StatusBadNodeIDUnknown}, nil
	}
	if node.Value == nil {
		return &ua.DataValue{EncodingMask: ua.DataValueStatusCode, Status: ua.StatusBadAttributeIDInvalid}, nil
	}

	dv := &ua.DataValue{
		EncodingMask: ua.DataValueValue | ua.DataValueStatusCode,
		Value:        node.Value,
		Status:       ua.StatusOK,
	}
	now := time.Now()
	switch ts {
	case ua.TimestampsToReturnSource:
		dv.EncodingMask |= ua.DataValueSourceTimestamp
		dv.SourceTimestamp = now
	case ua.TimestampsToReturnServer:
		dv.EncodingMask |= ua.DataValueServerTimestamp
		dv.ServerTimestamp = now
	case ua.TimestampsToReturnBoth:
		dv.EncodingMask |= ua.DataValueSourceTimestamp | ua.DataValueServerTimestamp
		dv.SourceTimestamp = now
		dv.ServerTimestamp = now
	}
	return dv, nil
}

// SetValue overwrites a Variable node's sampled value in place. Used by the
// serve command's demo session to simulate a changing sensor value.
func (r *ValueReader) SetValue(nodeID *ua.NodeID, v *ua.Variant) {
	node := r.index.LookupByNodeID(nodeID)
	if node == nil {
		return
	}
	node.Value = v
}
