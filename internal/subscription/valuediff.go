package subscription

import (
	"time"

	"github.com/gopcua/opcua/ua"
)

// isEmptyValue reports whether dv carries no scalar payload at all — the
// datatype==0 case in the reference implementation, which clears dirty and
// skips the item rather than diffing against nothing.
func isEmptyValue(dv *ua.DataValue) bool {
	return dv == nil || dv.Value == nil || dv.Value.Value() == nil
}

// isValueDifferent compares last against current for the six scalar types
// the scheduler understands: Double, DateTime, String, UInt32, Int16,
// Boolean. Two values of different concrete types are always "different".
// Any other type (including arrays) is unsupported and reported as not
// different, matching the reference implementation's silent false.
func isValueDifferent(last, current *ua.DataValue) bool {
	if isEmptyValue(last) {
		return !isEmptyValue(current)
	}
	if isEmptyValue(current) {
		return true
	}

	a := last.Value.Value()
	b := current.Value.Value()

	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return !ok || av != bv
	case time.Time:
		bv, ok := b.(time.Time)
		return !ok || !av.Equal(bv)
	case string:
		bv, ok := b.(string)
		return !ok || av != bv
	case uint32:
		bv, ok := b.(uint32)
		return !ok || av != bv
	case int16:
		bv, ok := b.(int16)
		return !ok || av != bv
	case bool:
		bv, ok := b.(bool)
		return !ok || av != bv
	default:
		return false
	}
}

// copyDataValue copies src's scalar value and quality/timestamp fields into
// a fresh DataValue. Only the six supported scalar types are copied; any
// other type yields BadNotImplemented and a nil DataValue, mirroring
// copy_data_value's switch-with-default.
func copyDataValue(src *ua.DataValue) (*ua.DataValue, ua.StatusCode) {
	if isEmptyValue(src) {
		return &ua.DataValue{
			Status:          src.Status,
			SourceTimestamp: src.SourceTimestamp,
			ServerTimestamp: src.ServerTimestamp,
		}, ua.StatusOK
	}

	switch src.Value.Value().(type) {
	case float64, time.Time, string, uint32, int16, bool:
		return &ua.DataValue{
			Value:           ua.MustVariant(src.Value.Value()),
			Status:          src.Status,
			SourceTimestamp: src.SourceTimestamp,
			ServerTimestamp: src.ServerTimestamp,
		}, ua.StatusOK
	default:
		return nil, ua.StatusBadNotImplemented
	}
}
