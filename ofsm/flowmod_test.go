package ofsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofswitch/ofsm/ofp"
)

// TestFlowAddOverwritesStrictMatch covers S1: adding a flow entry that
// strict-matches an existing one replaces it in place, releasing the
// old entry without a flow_removed notification (DeleteCauseOverwrite
// never sends one).
func TestFlowAddOverwritesStrictMatch(t *testing.T) {
	m, fwd, _, cxn := newTestManager()

	first := &ofp.FlowMod{
		Command:  ofp.FlowAdd,
		Table:    1,
		Priority: 10,
		Match:    exactMatch(1),
		Flags:    ofp.FlowFlagSendFlowRem,
	}
	m.HandleFlowMod(ofp.Ver13, 1, 100, first)
	require.Equal(t, uint32(1), m.FT.Status().CurrentCount)

	second := &ofp.FlowMod{
		Command:  ofp.FlowAdd,
		Table:    1,
		Priority: 10,
		Match:    exactMatch(1),
		Flags:    ofp.FlowFlagSendFlowRem,
	}
	m.HandleFlowMod(ofp.Ver13, 1, 101, second)

	assert.Equal(t, uint32(1), m.FT.Status().CurrentCount, "overwrite must not grow the table")
	assert.Equal(t, uint32(2), m.FT.Status().Adds)
	assert.Equal(t, uint32(1), m.FT.Status().Deletes)
	assert.Len(t, fwd.deleteCalls, 1, "the overwritten entry must be released from the forwarding plane")
	assert.Empty(t, cxn.sent, "overwrite must never emit a flow_removed message")
}

// TestFlowAddOverlapRejected covers S2: an ADD carrying
// FlowFlagCheckOverlap is rejected with FLOW_MOD_FAILED/OVERLAP when
// an existing entry at the same priority shares any match-space.
func TestFlowAddOverlapRejected(t *testing.T) {
	m, _, _, cxn := newTestManager()

	existing := &ofp.FlowMod{
		Command:  ofp.FlowAdd,
		Table:    1,
		Priority: 5,
		Match:    ofp.Match{Type: ofp.MatchTypeXM},
	}
	m.HandleFlowMod(ofp.Ver13, 1, 1, existing)

	overlapping := &ofp.FlowMod{
		Command:  ofp.FlowAdd,
		Table:    1,
		Priority: 5,
		Match:    ofp.Match{Type: ofp.MatchTypeXM},
		Flags:    ofp.FlowFlagCheckOverlap,
	}
	kind := m.HandleFlowMod(ofp.Ver13, 1, 2, overlapping)

	assert.Equal(t, KindNone, kind)
	assert.Equal(t, uint32(1), m.FT.Status().CurrentCount, "the overlapping add must not be installed")

	ce, ok := cxn.lastError()
	require.True(t, ok)
	assert.Equal(t, ofp.ErrTypeFlowModFailed, ce.typ)
	assert.Equal(t, ofp.ErrCodeFlowModFailedOverlap, ce.code)
	assert.Equal(t, uint32(2), ce.xid)
}

// TestFlowModifyNonStrictTreatsNoMatchAsAdd covers S3: a non-strict
// MODIFY that matches nothing installs a new entry exactly as ADD
// would (the "treat as add" law).
func TestFlowModifyNonStrictTreatsNoMatchAsAdd(t *testing.T) {
	m, fwd, _, _ := newTestManager()

	msg := &ofp.FlowMod{
		Command:  ofp.FlowModify,
		Table:    1,
		Priority: 10,
		Match:    exactMatch(7),
	}
	m.HandleFlowMod(ofp.Ver13, 1, 1, msg)

	assert.Equal(t, uint32(1), m.FT.Status().CurrentCount)
	assert.Len(t, fwd.createCalls, 1, "treat-as-add must go through FlowCreate, not FlowModify")
	assert.Empty(t, fwd.modifyCalls)
}

// TestFlowModifyNonStrictUpdatesMatchingEntries covers the MODIFY path
// when entries do match: effects are replaced in place via
// FWD.FlowModify, and the entry's identity/timers are untouched.
func TestFlowModifyNonStrictUpdatesMatchingEntries(t *testing.T) {
	m, fwd, _, _ := newTestManager()

	add := &ofp.FlowMod{
		Command:      ofp.FlowAdd,
		Table:        1,
		Priority:     10,
		Match:        exactMatch(1),
		Instructions: ofp.Instructions{&ofp.InstructionApplyActions{Actions: ofp.Actions{&ofp.ActionOutput{Port: 1}}}},
	}
	m.HandleFlowMod(ofp.Ver13, 1, 1, add)

	modify := &ofp.FlowMod{
		Command:      ofp.FlowModify,
		Table:        1,
		Match:        ofp.Match{Type: ofp.MatchTypeXM},
		Instructions: ofp.Instructions{&ofp.InstructionApplyActions{Actions: ofp.Actions{&ofp.ActionOutput{Port: 2}}}},
	}
	m.HandleFlowMod(ofp.Ver13, 1, 2, modify)

	require.Len(t, fwd.modifyCalls, 1)
	assert.Equal(t, uint32(1), m.FT.Status().CurrentCount, "MODIFY must not change the entry count")

	var entry *FlowEntry
	m.FT.ITER(func(e *FlowEntry) bool {
		entry = e
		return false
	})
	require.NotNil(t, entry)
	outs := entry.Effects.outputPorts()
	require.Len(t, outs, 1)
	assert.Equal(t, ofp.PortNo(2), outs[0], "the installed effects must reflect the modification, not the original add")
}

// TestFlowDeleteNonStrictIsIdempotent covers S4: a non-strict DELETE
// matching nothing is a no-op, and deleting the same entry twice never
// errors or double-releases the forwarding plane.
func TestFlowDeleteNonStrictIsIdempotent(t *testing.T) {
	m, fwd, _, cxn := newTestManager()

	add := &ofp.FlowMod{
		Command:  ofp.FlowAdd,
		Table:    1,
		Priority: 10,
		Match:    exactMatch(1),
		Flags:    ofp.FlowFlagSendFlowRem,
	}
	m.HandleFlowMod(ofp.Ver13, 1, 1, add)

	del := &ofp.FlowMod{
		Command:  ofp.FlowDelete,
		Table:    1,
		Match:    ofp.Match{Type: ofp.MatchTypeXM},
		OutPort:  ofp.PortAny,
		OutGroup: ofp.GroupAny,
	}
	m.HandleFlowMod(ofp.Ver13, 1, 2, del)

	assert.Equal(t, uint32(0), m.FT.Status().CurrentCount)
	assert.Len(t, fwd.deleteCalls, 1)
	assert.Len(t, cxn.sent, 1, "the flag-requested flow_removed must be sent exactly once")

	// Deleting again (nothing left to match) must be a pure no-op.
	m.HandleFlowMod(ofp.Ver13, 1, 3, del)
	assert.Equal(t, uint32(0), m.FT.Status().CurrentCount)
	assert.Len(t, fwd.deleteCalls, 1, "a second delete over an empty match must not call FlowDelete again")
	assert.Len(t, cxn.sent, 1)
}

// TestFlowDeleteStrictNoMatchIsNoop exercises DELETE-STRICT against a
// non-existent entry, which must silently do nothing.
func TestFlowDeleteStrictNoMatchIsNoop(t *testing.T) {
	m, fwd, _, cxn := newTestManager()

	del := &ofp.FlowMod{
		Command:  ofp.FlowDeleteStrict,
		Table:    1,
		Priority: 10,
		Match:    exactMatch(9),
		OutPort:  ofp.PortAny,
		OutGroup: ofp.GroupAny,
	}
	kind := m.HandleFlowMod(ofp.Ver13, 1, 1, del)

	assert.Equal(t, KindNone, kind)
	assert.Empty(t, fwd.deleteCalls)
	assert.Empty(t, cxn.sent)
	assert.Empty(t, cxn.errors)
}

// TestFlowModifyStrictFallsBackToAdd exercises MODIFY-STRICT against a
// non-existent entry, which must install it exactly as ADD would.
func TestFlowModifyStrictFallsBackToAdd(t *testing.T) {
	m, fwd, _, _ := newTestManager()

	msg := &ofp.FlowMod{
		Command:  ofp.FlowModifyStrict,
		Table:    1,
		Priority: 10,
		Match:    exactMatch(3),
	}
	m.HandleFlowMod(ofp.Ver13, 1, 1, msg)

	assert.Equal(t, uint32(1), m.FT.Status().CurrentCount)
	assert.Len(t, fwd.createCalls, 1)
	assert.Empty(t, fwd.modifyCalls)
}

// TestFlowAddV10UsesActionsNotInstructions checks the version dispatch
// invariant directly: a Ver10 add carries Actions, never Instructions,
// in the installed entry's effects.
func TestFlowAddV10UsesActionsNotInstructions(t *testing.T) {
	m, _, _, _ := newTestManager()

	msg := &ofp.FlowMod{
		Command: ofp.FlowAdd,
		Match:   exactMatch(1),
		Actions: ofp.Actions{&ofp.ActionOutput{Port: 5}},
	}
	m.HandleFlowMod(ofp.Ver10, 1, 1, msg)

	var entry *FlowEntry
	m.FT.ITER(func(e *FlowEntry) bool {
		entry = e
		return false
	})
	require.NotNil(t, entry)
	assert.Nil(t, entry.Effects.Instructions)
	assert.NotNil(t, entry.Effects.Actions)
	assert.Equal(t, ofp.Ver10, entry.Effects.Ver)
}

// TestFlowAddResourceFailureRollsBack verifies that when FWD.FlowCreate
// fails, the tentatively-added entry is removed from the table again
// rather than left dangling (spec §4.1.2 step 7's rollback).
func TestFlowAddResourceFailureRollsBack(t *testing.T) {
	m, fwd, _, cxn := newTestManager()
	fwd.createErr = ErrResource

	msg := &ofp.FlowMod{
		Command: ofp.FlowAdd,
		Match:   exactMatch(1),
	}
	kind := m.HandleFlowMod(ofp.Ver13, 1, 1, msg)

	assert.Equal(t, KindNone, kind)
	assert.Equal(t, uint32(0), m.FT.Status().CurrentCount, "a rejected add must not leave an entry behind")
	assert.Equal(t, uint32(1), m.FT.Status().ForwardingAddErrors)

	ce, ok := cxn.lastError()
	require.True(t, ok)
	assert.Equal(t, ofp.ErrTypeFlowModFailed, ce.typ)
}

// TestFlowIDsAreUnique exercises invariant: every add receives a
// distinct, non-zero flow id, even across overwrites.
func TestFlowIDsAreUnique(t *testing.T) {
	m, _, _, _ := newTestManager()

	seen := map[FlowId]bool{}
	for i := uint16(0); i < 5; i++ {
		msg := &ofp.FlowMod{
			Command:  ofp.FlowAdd,
			Priority: i,
			Match:    exactMatch(uint32(i)),
		}
		m.HandleFlowMod(ofp.Ver13, 1, uint32(i), msg)
	}

	m.FT.ITER(func(e *FlowEntry) bool {
		assert.NotEqual(t, FlowId(0), e.ID)
		assert.False(t, seen[e.ID], "flow ids must be unique")
		seen[e.ID] = true
		return true
	})
	assert.Len(t, seen, 5)
}
