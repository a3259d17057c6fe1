package ofsm

import (
	"io"

	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// HandleBSNSetIPMask writes mask into the vendor ip-mask table at
// index, emitting a generic error on an out-of-range index (spec
// §4.7).
func (m *StateManager) HandleBSNSetIPMask(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.BSNSetIPMask) Kind {
	if err := m.IPMask.Set(msg.Index, msg.Mask); err != nil {
		m.log.WithError(err).Warn("bsn: bad ip-mask index")
		m.sendError(ver, cxnID, xid, causeUnhandled)
		return KindRange
	}
	return KindNone
}

// HandleBSNGetIPMaskRequest replies with the mask installed at index,
// emitting a generic error on an out-of-range index (spec §4.7).
func (m *StateManager) HandleBSNGetIPMaskRequest(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.BSNGetIPMaskRequest) Kind {
	mask, err := m.IPMask.Get(msg.Index)
	if err != nil {
		m.log.WithError(err).Warn("bsn: bad ip-mask index")
		m.sendError(ver, cxnID, xid, causeUnhandled)
		return KindRange
	}

	reply := &ofp.BSNGetIPMaskReply{Index: msg.Index, Mask: mask}
	m.sendExperimenterReply(ver, cxnID, xid, ofp.BSNGetIPMaskReplyType, reply)
	return KindNone
}

// HandleBSNHybridGetRequest replies with a fixed hybrid-mode
// advertisement: this core always runs purely as an OpenFlow datapath
// (spec §4.7).
func (m *StateManager) HandleBSNHybridGetRequest(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.BSNHybridGetRequest) Kind {
	reply := &ofp.BSNHybridGetReply{HybridEnable: 1, HybridVersion: 0}
	m.sendExperimenterReply(ver, cxnID, xid, ofp.BSNHybridGetReplyType, reply)
	return KindNone
}

// sendExperimenterReply wraps body behind an experimenter header
// naming expType under the BSN experimenter id and transmits it as a
// TypeExperiment reply on cxnID.
func (m *StateManager) sendExperimenterReply(ver ofp.Ver, cxnID uint64, xid uint32, expType uint32, body io.WriterTo) {
	header := &ofp.Experimenter{Experimenter: ofp.ExperimenterBSN, ExpType: expType}
	full := of.MultiWriterTo(header, body)

	req, err := newReply(ver, of.TypeExperiment, xid, full)
	if err != nil {
		m.log.WithError(err).Warn("failed to encode bsn experimenter reply")
		return
	}

	if err := m.CXN.Send(cxnID, req); err != nil {
		m.log.WithError(err).Warn("failed to send bsn experimenter reply")
	}
}
