package ofsm

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofswitch/ofsm/ofp"
)

func newEntry(id FlowId, priority uint16, port uint32) *FlowEntry {
	return &FlowEntry{
		ID:       id,
		TableID:  1,
		Priority: priority,
		Match:    exactMatch(port),
		Effects:  Effects{Ver: ofp.Ver13},
	}
}

// TestTableAddRejectsZeroID checks invariant: id 0 is reserved as
// invalid and Add must refuse it.
func TestTableAddRejectsZeroID(t *testing.T) {
	ft := NewFlowTable()
	_, err := ft.Add(0, newEntry(0, 1, 1))
	assert.ErrorIs(t, err, ErrParam)
}

// TestTableAddRejectsDuplicateID checks invariant: flow ids are unique
// within the table.
func TestTableAddRejectsDuplicateID(t *testing.T) {
	ft := NewFlowTable()
	_, err := ft.Add(1, newEntry(1, 1, 1))
	require.NoError(t, err)

	_, err = ft.Add(1, newEntry(1, 2, 2))
	assert.ErrorIs(t, err, ErrResource)
}

// TestTableCountCoherence checks invariant: current_count tracks
// adds minus deletes exactly.
func TestTableCountCoherence(t *testing.T) {
	ft := NewFlowTable()
	e1, _ := ft.Add(1, newEntry(1, 1, 1))
	_, _ = ft.Add(2, newEntry(2, 2, 2))
	require.Equal(t, uint32(2), ft.Status().CurrentCount)

	require.NoError(t, ft.Delete(e1))
	assert.Equal(t, uint32(1), ft.Status().CurrentCount)
	assert.Equal(t, uint32(2), ft.Status().Adds)
	assert.Equal(t, uint32(1), ft.Status().Deletes)
}

// TestTableDeleteUnknownEntryErrors checks invariant: deleting an
// entry not linked to the table is reported, not silently ignored.
func TestTableDeleteUnknownEntryErrors(t *testing.T) {
	ft := NewFlowTable()
	err := ft.Delete(newEntry(99, 1, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestStrictMatchFindsExactEntryOnly checks StrictMatch requires exact
// priority and match equality, not merely overlap.
func TestStrictMatchFindsExactEntryOnly(t *testing.T) {
	ft := NewFlowTable()
	_, _ = ft.Add(1, newEntry(1, 10, 1))

	hit := &MatchQuery{TableID: TableAny, Mode: ModeStrict, Priority: 10, Match: exactMatch(1), OutPort: PortDestWildcard}
	found := ft.StrictMatch(hit)
	require.NotNil(t, found)
	assert.Equal(t, FlowId(1), found.ID)

	missPriority := &MatchQuery{TableID: TableAny, Mode: ModeStrict, Priority: 11, Match: exactMatch(1), OutPort: PortDestWildcard}
	assert.Nil(t, ft.StrictMatch(missPriority))

	missMatch := &MatchQuery{TableID: TableAny, Mode: ModeStrict, Priority: 10, Match: exactMatch(2), OutPort: PortDestWildcard}
	assert.Nil(t, ft.StrictMatch(missMatch))
}

// TestIterationSnapshotExcludesLaterDeletes exercises the documented
// snapshot semantics: an iteration task built before a concurrent
// delete must not observe entries removed after the snapshot was
// taken.
func TestIterationSnapshotExcludesLaterDeletes(t *testing.T) {
	ft := NewFlowTable()
	e1, _ := ft.Add(1, newEntry(1, 1, 1))
	e2, _ := ft.Add(2, newEntry(2, 1, 2))

	query := &MatchQuery{TableID: TableAny, Mode: ModeNonStrict, Match: ofp.Match{Type: ofp.MatchTypeXM}, OutPort: PortDestWildcard}
	task, err := ft.SpawnIterTask(query, func(e *FlowEntry) {})
	require.NoError(t, err)

	// Deleting e1 while the task's snapshot still references it must
	// mark it deleted, since the table has an active iteration.
	require.NoError(t, ft.Delete(e1))
	assert.True(t, e1.deleted)

	var delivered []FlowId
	task.cb = func(e *FlowEntry) {
		if e != nil {
			delivered = append(delivered, e.ID)
		}
	}
	RunToCompletion(task, NewSliceScheduler(0, time.Now()))

	assert.Equal(t, []FlowId{e2.ID}, delivered, "a deleted entry must not be delivered even though it was in the snapshot")
}

// TestTeardownCancelsActiveTasksWithEmptyRemainder checks that tearing
// down the table while an iteration task is mid-flight runs it to
// terminal immediately, delivering no further entries.
func TestTeardownCancelsActiveTasksWithEmptyRemainder(t *testing.T) {
	ft := NewFlowTable()
	_, _ = ft.Add(1, newEntry(1, 1, 1))
	_, _ = ft.Add(2, newEntry(2, 1, 2))

	query := &MatchQuery{TableID: TableAny, Mode: ModeNonStrict, Match: ofp.Match{Type: ofp.MatchTypeXM}, OutPort: PortDestWildcard}

	var delivered []FlowId
	task, err := ft.SpawnIterTask(query, func(e *FlowEntry) {
		if e != nil {
			delivered = append(delivered, e.ID)
		}
	})
	require.NoError(t, err)

	ft.Teardown()
	assert.True(t, task.Done())
	assert.Empty(t, delivered, "a torn-down task must deliver no entries, only its terminal callback")
}

// TestEntryModifyEffectsReplacesAsSingleValue checks the documented
// atomicity contract: EntryModifyEffects swaps the entire Effects
// value, never a partial field-by-field mutation.
func TestEntryModifyEffectsReplacesAsSingleValue(t *testing.T) {
	ft := NewFlowTable()
	e, _ := ft.Add(1, newEntry(1, 1, 1))

	before := e.Effects
	next := Effects{Ver: ofp.Ver13, Instructions: ofp.Instructions{&ofp.InstructionApplyActions{Actions: ofp.Actions{&ofp.ActionOutput{Port: 9}}}}}
	ft.EntryModifyEffects(e, next)

	assert.False(t, cmp.Equal(before, e.Effects), "effects must have changed")
	assert.Equal(t, ofp.PortNo(9), e.Effects.outputPorts()[0])
}
