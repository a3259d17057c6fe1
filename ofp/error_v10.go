package ofp

// OpenFlow 1.0 numbers the flow-mod-failed codes differently from
// 1.1 and later: ErrCodeFlowModFailedUnknown and friends above do not
// apply to a 1.0 connection. These constants carry the 1.0-specific
// wire values so a version-aware encoder can pick the right one.
const (
	// ErrCodeFlowModFailedAllTablesFullV10 is returned when the switch
	// has no room for more flow entries of any kind.
	ErrCodeFlowModFailedAllTablesFullV10 ErrCode = iota

	// ErrCodeFlowModFailedOverlapV10 is returned when the requested
	// entry overlaps with an existing entry and the CheckOverlap flag
	// was set.
	ErrCodeFlowModFailedOverlapV10

	// ErrCodeFlowModFailedEPermV10 is returned when permission was
	// denied.
	ErrCodeFlowModFailedEPermV10

	// ErrCodeFlowModFailedBadEmergTimeoutV10 is returned when an
	// emergency flow tried to use a non-zero idle or hard timeout.
	ErrCodeFlowModFailedBadEmergTimeoutV10

	// ErrCodeFlowModFailedBadCommandV10 is returned for an unknown
	// flow-mod command.
	ErrCodeFlowModFailedBadCommandV10

	// ErrCodeFlowModFailedUnsupportedV10 is returned when the
	// requested action list or flags are not supported.
	ErrCodeFlowModFailedUnsupportedV10
)

var errCodeTextFlowModFailedV10 = map[ErrCode]string{
	ErrCodeFlowModFailedAllTablesFullV10:   "ErrCodeFlowModFailedAllTablesFullV10",
	ErrCodeFlowModFailedOverlapV10:         "ErrCodeFlowModFailedOverlapV10",
	ErrCodeFlowModFailedEPermV10:           "ErrCodeFlowModFailedEPermV10",
	ErrCodeFlowModFailedBadEmergTimeoutV10: "ErrCodeFlowModFailedBadEmergTimeoutV10",
	ErrCodeFlowModFailedBadCommandV10:      "ErrCodeFlowModFailedBadCommandV10",
	ErrCodeFlowModFailedUnsupportedV10:     "ErrCodeFlowModFailedUnsupportedV10",
}
