package ofsm

import (
	"time"

	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// DeleteCause records why an entry left the Flow Table, selecting
// whether a flow_removed notification is due and which wire reason it
// carries (spec §4.1.7).
type DeleteCause int

const (
	// DeleteCauseIdleTimeout means the entry's idle timer expired.
	DeleteCauseIdleTimeout DeleteCause = iota

	// DeleteCauseHardTimeout means the entry's hard timer expired.
	DeleteCauseHardTimeout

	// DeleteCauseDelete means a DELETE/DELETE-STRICT flow-mod matched
	// the entry.
	DeleteCauseDelete

	// DeleteCauseOverwrite means an ADD replaced an entry that
	// strict-matched the new one; no flow_removed is ever sent for
	// this cause.
	DeleteCauseOverwrite
)

var deleteCauseReason = map[DeleteCause]ofp.FlowRemovedReason{
	DeleteCauseIdleTimeout: ofp.FlowReasonIdleTimeout,
	DeleteCauseHardTimeout: ofp.FlowReasonHardTimeout,
	DeleteCauseDelete:      ofp.FlowReasonDelete,
}

// buildQuery assembles the normalized query for msg under mode,
// forcing the query's out-port to the wildcard when
// forceWildOutport is set (spec §4.1.1).
func buildQuery(msg *ofp.FlowMod, ver ofp.Ver, mode Mode, forceWildOutport bool) *MatchQuery {
	q := &MatchQuery{
		TableID: TableAny,
		Match:   msg.Match,
		Mode:    mode,
	}

	if ver.HasTableID() {
		q.TableID = msg.Table
	}

	if mode == ModeStrict || mode == ModeOverlap {
		q.Priority = msg.Priority
	}

	if forceWildOutport {
		q.OutPort = PortDestWildcard
	} else {
		q.OutPort = msg.OutPort
	}

	if mode != ModeOverlap && ver.HasCookieMatch() {
		q.Cookie = msg.Cookie
		q.CookieMask = msg.CookieMask
		q.HasCookie = true
	}

	return q
}

// HandleFlowMod dispatches a decoded flow-mod message to the command
// appropriate engine path (spec §4.1).
func (m *StateManager) HandleFlowMod(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.FlowMod) Kind {
	switch msg.Command {
	case ofp.FlowAdd:
		return m.flowAdd(ver, cxnID, xid, msg)
	case ofp.FlowModify:
		return m.flowModify(ver, cxnID, xid, msg)
	case ofp.FlowModifyStrict:
		return m.flowModifyStrict(ver, cxnID, xid, msg)
	case ofp.FlowDelete:
		return m.flowDelete(ver, cxnID, xid, msg)
	case ofp.FlowDeleteStrict:
		return m.flowDeleteStrict(ver, cxnID, xid, msg)
	default:
		m.sendError(ver, cxnID, xid, causeFlowModOther)
		return KindParam
	}
}

// flowAdd implements the ADD path (spec §4.1.2).
func (m *StateManager) flowAdd(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.FlowMod) Kind {
	if msg.Flags&ofp.FlowFlagCheckOverlap != 0 {
		overlap := buildQuery(msg, ver, ModeOverlap, true)
		found := false
		m.FT.ITER(func(e *FlowEntry) bool {
			if overlap.Matches(e) {
				found = true
				return false
			}
			return true
		})
		if found {
			m.sendError(ver, cxnID, xid, causeFlowModOverlap)
			return KindNone
		}
	}

	if ver == ofp.Ver10 && msg.Flags&ofp.FlowFlagEmergV10 != 0 {
		if msg.IdleTimeout != 0 || msg.HardTimeout != 0 {
			m.sendError(ver, cxnID, xid, causeFlowModBadEmergTimeout)
			return KindParam
		}
	}

	strict := buildQuery(msg, ver, ModeStrict, true)
	if existing := m.FT.StrictMatch(strict); existing != nil {
		m.deleteEntry(ver, cxnID, existing, DeleteCauseOverwrite)
	}

	id := FlowId(m.FlowIDs.Next())
	tableID := msg.Table
	if !ver.HasTableID() {
		tableID = 0
	}

	entry := entryFromFlowMod(msg, ver, tableID)
	entry, err := m.FT.Add(id, entry)
	if err != nil {
		m.log.WithError(err).Warn("failed to add flow entry")
		m.sendError(ver, cxnID, xid, causeFlowModResource)
		return KindNone
	}

	resolvedTable, err := m.FWD.FlowCreate(id, msg)
	if err != nil {
		m.FT.NoteForwardingAddError()
		m.log.WithError(err).Warn("forwarding plane rejected flow entry")
		_ = m.FT.Delete(entry)
		m.sendError(ver, cxnID, xid, causeFlowModResource)
		return KindNone
	}

	entry.TableID = resolvedTable
	entry.InsertTime = m.SOC.Now()
	return KindNone
}

// flowModify implements the non-strict MODIFY path (spec §4.1.3),
// running synchronously under the bundled cooperative scheduler.
func (m *StateManager) flowModify(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.FlowMod) Kind {
	query := buildQuery(msg, ver, ModeNonStrict, true)
	numMatched := 0

	task, err := m.FT.SpawnIterTask(query, func(e *FlowEntry) {
		if e == nil {
			if numMatched == 0 {
				m.flowAdd(ver, cxnID, xid, msg)
			}
			return
		}

		numMatched++
		if err := m.FWD.FlowModify(e.ID, msg); err != nil {
			m.log.WithError(err).Warn("forwarding plane rejected flow modification")
			m.sendError(ver, cxnID, xid, causeFlowModOther)
			return
		}

		m.FT.EntryModifyEffects(e, effectsFromFlowMod(msg, ver))
	})
	if err != nil {
		m.sendError(ver, cxnID, xid, causeFlowModResource)
		return KindNone
	}

	m.runIterTask(task)
	return KindNone
}

// flowModifyStrict implements MODIFY-STRICT (spec §4.1.4).
func (m *StateManager) flowModifyStrict(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.FlowMod) Kind {
	query := buildQuery(msg, ver, ModeStrict, true)
	entry := m.FT.StrictMatch(query)
	if entry == nil {
		return m.flowAdd(ver, cxnID, xid, msg)
	}

	if err := m.FWD.FlowModify(entry.ID, msg); err != nil {
		m.log.WithError(err).Warn("forwarding plane rejected strict flow modification")
		m.sendError(ver, cxnID, xid, causeFlowModOther)
		return KindNone
	}

	m.FT.EntryModifyEffects(entry, effectsFromFlowMod(msg, ver))
	return KindNone
}

// flowDelete implements the non-strict DELETE path (spec §4.1.5).
func (m *StateManager) flowDelete(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.FlowMod) Kind {
	query := buildQuery(msg, ver, ModeNonStrict, false)

	task, err := m.FT.SpawnIterTask(query, func(e *FlowEntry) {
		if e == nil {
			return
		}
		m.deleteEntry(ver, cxnID, e, DeleteCauseDelete)
	})
	if err != nil {
		m.sendError(ver, cxnID, xid, causeFlowModResource)
		return KindNone
	}

	m.runIterTask(task)
	return KindNone
}

// flowDeleteStrict implements DELETE-STRICT (spec §4.1.6).
func (m *StateManager) flowDeleteStrict(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.FlowMod) Kind {
	query := buildQuery(msg, ver, ModeStrict, false)
	entry := m.FT.StrictMatch(query)
	if entry != nil {
		m.deleteEntry(ver, cxnID, entry, DeleteCauseDelete)
	}
	return KindNone
}

// deleteEntry is the shared entry deletion routine (spec §4.1.7):
// it tells FWD to release the entry's forwarding-plane state,
// conditionally notifies the controller, then unlinks the entry from
// FT.
func (m *StateManager) deleteEntry(ver ofp.Ver, cxnID uint64, e *FlowEntry, cause DeleteCause) {
	stats, err := m.FWD.FlowDelete(e.ID)
	if err != nil {
		m.log.WithError(err).Warn("forwarding plane failed to release flow entry")
	}

	if e.SendFlowRemoved() && cause != DeleteCauseOverwrite {
		m.sendFlowRemoved(ver, cxnID, e, cause, stats)
	}

	if err := m.FT.Delete(e); err != nil {
		m.log.WithError(err).Warn("flow entry already unlinked")
	}
}

func (m *StateManager) sendFlowRemoved(ver ofp.Ver, cxnID uint64, e *FlowEntry, cause DeleteCause, stats FlowStats) {
	duration := m.SOC.Now().Sub(e.InsertTime)
	if duration < 0 {
		duration = 0
	}

	removed := &ofp.FlowRemoved{
		Cookie:       e.Cookie,
		Priority:     e.Priority,
		Reason:       deleteCauseReason[cause],
		Table:        e.TableID,
		DurationSec:  uint32(duration / time.Second),
		DurationNSec: uint32(duration % time.Second),
		IdleTimeout:  e.IdleTimeout,
		HardTimeout:  e.HardTimeout,
		PacketCount:  stats.PacketCount,
		ByteCount:    stats.ByteCount,
		Match:        e.Match,
	}

	req, err := newReply(ver, of.TypeFlowRemoved, m.nextXid(), removed)
	if err != nil {
		m.log.WithError(err).Warn("failed to encode flow removed message")
		return
	}

	if err := m.CXN.Send(cxnID, req); err != nil {
		m.log.WithError(err).Warn("failed to send flow removed message")
	}
}

// effectsFromFlowMod builds the replacement Effects a MODIFY path
// installs, mirroring entryFromFlowMod's version dispatch without
// touching the entry's identity, timers, or counters.
func effectsFromFlowMod(msg *ofp.FlowMod, ver ofp.Ver) Effects {
	effects := Effects{Ver: ver}
	if ver.UsesInstructions() {
		effects.Instructions = msg.Instructions
	} else {
		effects.Actions = msg.Actions
	}
	return effects
}
