package ofsm

import "github.com/ofswitch/ofsm/ofp"

// Kind is the internal error taxonomy handlers return to the
// dispatcher (spec §7). It is not the user-visible signal — wire
// errors sent via CXN.send_error carry the protocol-level meaning.
type Kind int

const (
	// KindNone indicates success.
	KindNone Kind = iota

	// KindParam indicates a malformed or semantically invalid request
	// parameter.
	KindParam

	// KindResource indicates an allocation or table-capacity failure.
	KindResource

	// KindNotFound indicates a lookup that found nothing.
	KindNotFound

	// KindRange indicates a value outside its valid range (e.g. an
	// out-of-bounds BSN ip-mask index).
	KindRange

	// KindNotSupported indicates an operation the datapath does not
	// implement.
	KindNotSupported

	// KindUnknown indicates an unclassified internal failure.
	KindUnknown
)

var kindText = map[Kind]string{
	KindNone:         "none",
	KindParam:        "invalid parameter",
	KindResource:     "resource exhausted",
	KindNotFound:     "not found",
	KindRange:        "value out of range",
	KindNotSupported: "not supported",
	KindUnknown:      "unknown error",
}

// Error implements the error interface, letting Kind values be
// returned and wrapped as ordinary Go errors.
func (k Kind) Error() string {
	if text, ok := kindText[k]; ok {
		return text
	}
	return "ofsm: unrecognized error kind"
}

// Sentinel Kind values for use with errors.Is/errors.As and %w
// wrapping.
var (
	ErrNone         = KindNone
	ErrParam        = KindParam
	ErrResource     = KindResource
	ErrNotFound     = KindNotFound
	ErrRange        = KindRange
	ErrNotSupported = KindNotSupported
	ErrUnknown      = KindUnknown
)

// wireCause enumerates the internal conditions the Error Encoder (C8)
// maps to a wire (type, code) pair. It is distinct from Kind because
// several distinct wire outcomes (e.g. "overlap detected" vs generic
// RESOURCE) share the same Kind but need different wire codes.
type wireCause int

const (
	causeFlowModResource wireCause = iota
	causeFlowModNotSupported
	causeFlowModOther
	causeFlowModOverlap
	causeFlowModBadEmergTimeout
	causePortModFailed
	causeQueueBadPort
	causeQueueBadQueue
	causeExperimenterNotSupported
	causeUnhandled
)

// wireError is the (type, code) pair an internal cause maps to for a
// given wire version (spec §4.8).
type wireError struct {
	Type ofp.ErrType
	Code ofp.ErrCode
}

// encodeError maps an internal cause to the wire error appropriate for
// ver, per the table in spec §4.8.
func encodeError(cause wireCause, ver ofp.Ver) wireError {
	v10 := ver == ofp.Ver10

	switch cause {
	case causeFlowModResource:
		if v10 {
			return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedAllTablesFullV10}
		}
		return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedTableFull}

	case causeFlowModNotSupported:
		if v10 {
			return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedUnsupportedV10}
		}
		return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedBadCommand}

	case causeFlowModOther:
		if v10 {
			return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedEPermV10}
		}
		return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedUnknown}

	case causeFlowModOverlap:
		if v10 {
			return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedOverlapV10}
		}
		return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedOverlap}

	case causeFlowModBadEmergTimeout:
		// 1.0-only condition; callers never evaluate EMERG on later
		// versions (spec §4.1.2 step 3 is gated on the EMERG flag,
		// which has no defined meaning past 1.0).
		return wireError{ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedBadEmergTimeoutV10}

	case causePortModFailed:
		return wireError{ofp.ErrTypePortModFailed, ofp.ErrCodePortModFailedBadPort}

	case causeQueueBadPort:
		return wireError{ofp.ErrTypeQueueOpFailed, ofp.ErrCodeQueueOpFailedBadPort}

	case causeQueueBadQueue:
		return wireError{ofp.ErrTypeQueueOpFailed, ofp.ErrCodeQueueOpFailedBadQueue}

	case causeExperimenterNotSupported:
		return wireError{ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadExperimenter}

	case causeUnhandled:
		return wireError{ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadType}
	}

	return wireError{ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadType}
}
