package ofsm

import (
	"fmt"

	"github.com/ofswitch/ofsm/ofp"
)

// TableStatus reports the Flow Table's running counters (spec §3
// "Flow Table (FT)").
type TableStatus struct {
	CurrentCount         uint32
	Adds                 uint32
	Deletes              uint32
	ForwardingAddErrors  uint32
}

// FlowTable is the flow-mod engine's backing store (C3): an indexed
// collection of flow entries supporting strict lookup, non-strict
// iteration, add, and delete, with process-wide status counters.
//
// FlowTable is not safe for concurrent use from multiple goroutines;
// the cooperative single-threaded scheduling model (spec §5) makes
// that unnecessary within a single StateManager.
type FlowTable struct {
	entries map[FlowId]*FlowEntry
	order   []FlowId
	status  TableStatus
	active  []*IterationTask
}

// NewFlowTable returns an empty flow table.
func NewFlowTable() *FlowTable {
	return &FlowTable{entries: make(map[FlowId]*FlowEntry)}
}

// Status returns a snapshot of the table's running counters.
func (t *FlowTable) Status() TableStatus {
	return t.status
}

// Add allocates an entry populated from the given identity and
// inserts it into the table, updating current_count and adds.
func (t *FlowTable) Add(id FlowId, e *FlowEntry) (*FlowEntry, error) {
	if id == 0 {
		return nil, fmt.Errorf("ofsm: refusing to add flow entry with id 0: %w", ErrParam)
	}
	if _, exists := t.entries[id]; exists {
		return nil, fmt.Errorf("ofsm: flow id %d already present: %w", id, ErrResource)
	}

	e.ID = id
	t.entries[id] = e
	t.order = append(t.order, id)
	t.status.CurrentCount++
	t.status.Adds++
	return e, nil
}

// StrictMatch returns the first entry satisfying query under
// ModeStrict/ModeOverlap semantics, or nil if none matches.
func (t *FlowTable) StrictMatch(query *MatchQuery) *FlowEntry {
	for _, id := range t.order {
		e := t.entries[id]
		if e == nil || e.deleted {
			continue
		}
		if query.Matches(e) {
			return e
		}
	}
	return nil
}

// Delete unlinks and releases entry, updating current_count and
// deletes. Returns ErrNotFound if the entry is not linked.
func (t *FlowTable) Delete(e *FlowEntry) error {
	if _, ok := t.entries[e.ID]; !ok {
		return fmt.Errorf("ofsm: flow id %d not linked: %w", e.ID, ErrNotFound)
	}

	if t.hasActiveIteration() {
		// An iteration task may hold a snapshot pointer to e; mark it
		// deleted as well as unlinking it below, so the task skips it
		// instead of delivering a removed entry (spec §4.2 invariants,
		// §5 shared resource policy).
		e.deleted = true
	}

	delete(t.entries, e.ID)
	t.order = removeID(t.order, e.ID)
	t.status.CurrentCount--
	t.status.Deletes++
	return nil
}

// NoteForwardingAddError records an FWD.FlowCreate failure in the
// running status counters (spec §4.1.2 step 7).
func (t *FlowTable) NoteForwardingAddError() {
	t.status.ForwardingAddErrors++
}

// EntryModifyEffects replaces entry's effects without touching
// identity, timers, or counters. Safe to call while an iteration task
// holds a snapshot referencing entry, since Effects is replaced as a
// single value (no torn read is possible from a single-threaded
// caller, spec invariant 9).
func (t *FlowTable) EntryModifyEffects(e *FlowEntry, effects Effects) {
	e.Effects = effects
}

// ITER performs synchronous, non-yielding in-place iteration over
// every live entry, used by scanners that will not yield (overlap
// detection, C3 "ITER(body)").
func (t *FlowTable) ITER(body func(e *FlowEntry) bool) {
	for _, id := range t.order {
		e := t.entries[id]
		if e == nil || e.deleted {
			continue
		}
		if !body(e) {
			return
		}
	}
}

// SpawnIterTask registers a cooperative task that scans entries
// matching query, invoking cb once per match and finally once with a
// nil terminal sentinel (C4).
func (t *FlowTable) SpawnIterTask(query *MatchQuery, cb EntryCallback) (*IterationTask, error) {
	var snapshot []*FlowEntry
	for _, id := range t.order {
		e := t.entries[id]
		if e == nil || e.deleted {
			continue
		}
		if query.Matches(e) {
			snapshot = append(snapshot, e)
		}
	}

	task := &IterationTask{snapshot: snapshot, cb: cb}
	t.active = append(t.active, task)
	return task, nil
}

// reapFinishedTasks drops completed tasks from the active list so
// hasActiveIteration doesn't keep pinning deleted entries forever.
func (t *FlowTable) reapFinishedTasks() {
	live := t.active[:0]
	for _, task := range t.active {
		if !task.Done() {
			live = append(live, task)
		}
	}
	t.active = live
}

func (t *FlowTable) hasActiveIteration() bool {
	t.reapFinishedTasks()
	return len(t.active) > 0
}

// Teardown cancels every active iteration task, running each to
// terminal with an empty remainder (spec §4.3 cancellation).
func (t *FlowTable) Teardown() {
	for _, task := range t.active {
		task.Cancel()
	}
	t.active = nil
}

func removeID(order []FlowId, id FlowId) []FlowId {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// entryFromFlowMod builds a new, unlinked entry from a decoded
// flow-mod message and the query's resolved table id.
func entryFromFlowMod(msg *ofp.FlowMod, ver ofp.Ver, tableID ofp.Table) *FlowEntry {
	effects := Effects{Ver: ver}
	if ver.UsesInstructions() {
		effects.Instructions = msg.Instructions
	} else {
		effects.Actions = msg.Actions
	}

	return &FlowEntry{
		TableID:     tableID,
		Priority:    msg.Priority,
		Match:       msg.Match,
		Cookie:      msg.Cookie,
		IdleTimeout: msg.IdleTimeout,
		HardTimeout: msg.HardTimeout,
		Flags:       msg.Flags,
		Effects:     effects,
	}
}
