package ofsm

import (
	"bytes"
	"errors"
	"io"
	"time"

	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// maxMultipartBody caps the serialized body of one multipart reply
// segment; a streaming reply that would exceed it is flushed and a
// fresh segment started (spec §4.4.1 step 5).
const maxMultipartBody = 32 * 1024

// rawBytes lets an already-serialized byte slice stand in for one
// entry of a MultiWriterTo chain.
type rawBytes []byte

func (b rawBytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b)
	return int64(n), err
}

// portList lets PORT.FeaturesGet's slice result serialize as the
// concatenation of each port's wire encoding.
type portList []ofp.Port

func (p portList) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range p {
		n, err := p[i].WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// sendMultipartReply wraps body in a multipart reply header naming
// mpType, serializes it as typ xid, and transmits it on cxnID.
func (m *StateManager) sendMultipartReply(ver ofp.Ver, cxnID uint64, xid uint32, mpType ofp.MultipartType, body io.WriterTo) Kind {
	full := of.MultiWriterTo(&ofp.MultipartReply{Type: mpType}, body)

	reply, err := newReply(ver, of.TypeMultipartReply, xid, full)
	if err != nil {
		m.log.WithError(err).Warn("failed to encode multipart reply")
		return KindResource
	}

	if err := m.CXN.Send(cxnID, reply); err != nil {
		m.log.WithError(err).Warn("failed to send multipart reply")
	}
	return KindNone
}

// readBody deserializes r into dst, a no-op when r is nil (a request
// whose multipart type carries no body).
func readBody(r io.Reader, dst io.ReaderFrom) error {
	if r == nil {
		return nil
	}
	_, err := dst.ReadFrom(r)
	return err
}

// unhandled is the fallback path for any message type the state
// manager does not otherwise dispatch (spec §4.6): it emits
// BAD_REQUEST/BAD_TYPE carrying the inbound xid and reports KindUnknown.
func (m *StateManager) unhandled(ver ofp.Ver, cxnID uint64, xid uint32) Kind {
	m.sendError(ver, cxnID, xid, causeUnhandled)
	return KindUnknown
}

// HandleMultipartRequest dispatches a decoded multipart request to its
// type-specific stats path (spec §4.4).
func (m *StateManager) HandleMultipartRequest(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.MultipartRequest) Kind {
	switch msg.Type {
	case ofp.MultipartTypeDescription:
		return m.descStats(ver, cxnID, xid)

	case ofp.MultipartTypeFlow:
		var req ofp.FlowStatsRequest
		if err := readBody(msg.Body, &req); err != nil {
			m.log.WithError(err).Warn("failed to decode flow stats request")
			return m.unhandled(ver, cxnID, xid)
		}
		return m.flowStats(ver, cxnID, xid, &req)

	case ofp.MultipartTypeAggregate:
		var req ofp.AggregateStatsRequest
		if err := readBody(msg.Body, &req); err != nil {
			m.log.WithError(err).Warn("failed to decode aggregate stats request")
			return m.unhandled(ver, cxnID, xid)
		}
		return m.aggregateStats(ver, cxnID, xid, &req)

	case ofp.MultipartTypeTable:
		return m.tableStats(ver, cxnID, xid)

	case ofp.MultipartTypePortStats:
		var req ofp.PortStatsRequest
		if err := readBody(msg.Body, &req); err != nil {
			m.log.WithError(err).Warn("failed to decode port stats request")
			return m.unhandled(ver, cxnID, xid)
		}
		return m.portStats(ver, cxnID, xid, &req)

	case ofp.MultipartTypeQueue:
		var req ofp.QueueStatsRequest
		if err := readBody(msg.Body, &req); err != nil {
			m.log.WithError(err).Warn("failed to decode queue stats request")
			return m.unhandled(ver, cxnID, xid)
		}
		return m.queueStats(ver, cxnID, xid, &req)

	case ofp.MultipartTypePortDescription:
		return m.portDescStats(ver, cxnID, xid)

	case ofp.MultipartTypeExperimenter:
		return m.HandleExperimenterStats(ver, cxnID, xid)

	default:
		return m.unhandled(ver, cxnID, xid)
	}
}

// buildStatsQuery normalizes a flow/aggregate stats request into the
// non-strict match query selecting the entries it covers.
func buildStatsQuery(table ofp.Table, outPort ofp.PortNo, cookie, cookieMask uint64, match ofp.Match, ver ofp.Ver) *MatchQuery {
	q := &MatchQuery{TableID: TableAny, Match: match, Mode: ModeNonStrict}

	if ver.HasTableID() {
		q.TableID = table
	}

	if outPort == ofp.PortAny {
		q.OutPort = PortDestWildcard
	} else {
		q.OutPort = outPort
	}

	if ver.HasCookieMatch() {
		q.Cookie = cookie
		q.CookieMask = cookieMask
		q.HasCookie = true
	}

	return q
}

// flowStatsFromEntry builds the wire flow-stats record for e as of
// now, populating actions or instructions by ver (spec §4.4.1 step 4).
func flowStatsFromEntry(e *FlowEntry, ver ofp.Ver, now time.Time, stats FlowStats) *ofp.FlowStats {
	duration := now.Sub(e.InsertTime)
	if duration < 0 {
		duration = 0
	}

	fs := &ofp.FlowStats{
		Table:        e.TableID,
		DurationSec:  uint32(duration / time.Second),
		DurationNSec: uint32(duration % time.Second),
		Priority:     e.Priority,
		IdleTimeout:  e.IdleTimeout,
		HardTimeout:  e.HardTimeout,
		Cookie:       e.Cookie,
		PacketCount:  stats.PacketCount,
		ByteCount:    stats.ByteCount,
		Match:        e.Match,
	}

	if ver >= ofp.Ver13 {
		fs.Flags = e.Flags
	}

	if ver.UsesInstructions() {
		fs.Instructions = e.Effects.Instructions
	} else {
		fs.Actions = e.Effects.Actions
	}

	return fs
}

// flowStats implements the streaming flow-stats path (spec §4.4.1):
// matching entries are serialized into segments capped at
// maxMultipartBody, each sent with the more flag set except the last.
func (m *StateManager) flowStats(ver ofp.Ver, cxnID uint64, xid uint32, req *ofp.FlowStatsRequest) Kind {
	query := buildStatsQuery(req.Table, req.OutPort, req.Cookie, req.CookieMask, req.Match, ver)
	now := m.SOC.Now()

	var batch bytes.Buffer

	flush := func(more bool) {
		var flags ofp.MultipartReplyFlag
		if more {
			flags = ofp.MultipartReplyMode
		}

		full := of.MultiWriterTo(&ofp.MultipartReply{Type: ofp.MultipartTypeFlow, Flags: flags}, rawBytes(batch.Bytes()))
		reply, err := newReply(ver, of.TypeMultipartReply, xid, full)
		if err != nil {
			m.log.WithError(err).Warn("failed to encode flow stats reply")
			batch.Reset()
			return
		}

		if err := m.CXN.Send(cxnID, reply); err != nil {
			m.log.WithError(err).Warn("failed to send flow stats reply")
		}
		batch.Reset()
	}

	task, err := m.FT.SpawnIterTask(query, func(e *FlowEntry) {
		if e == nil {
			flush(false)
			return
		}
		if e.Effects.Ver != ver {
			return
		}

		stats := m.FWD.FlowStatsGet(e.ID)
		fs := flowStatsFromEntry(e, ver, now, stats)

		var scratch bytes.Buffer
		if _, err := fs.WriteTo(&scratch); err != nil {
			m.log.WithError(err).Warn("failed to encode flow stats entry")
			return
		}

		if batch.Len() > 0 && batch.Len()+scratch.Len() > maxMultipartBody {
			flush(true)
		}
		batch.Write(scratch.Bytes())
	})
	if err != nil {
		m.log.WithError(err).Warn("failed to spawn flow stats iteration")
		return KindResource
	}

	m.runIterTask(task)
	return KindNone
}

// aggregateStats implements the aggregate-stats path (spec §4.4.2):
// one reply carrying the sums across every matching entry.
func (m *StateManager) aggregateStats(ver ofp.Ver, cxnID uint64, xid uint32, req *ofp.AggregateStatsRequest) Kind {
	query := buildStatsQuery(req.Table, req.OutPort, req.Cookie, req.CookieMask, req.Match, ver)

	var agg ofp.AggregateStats
	task, err := m.FT.SpawnIterTask(query, func(e *FlowEntry) {
		if e == nil {
			return
		}
		stats := m.FWD.FlowStatsGet(e.ID)
		agg.PacketCount += stats.PacketCount
		agg.ByteCount += stats.ByteCount
		agg.FlowCount++
	})
	if err != nil {
		m.log.WithError(err).Warn("failed to spawn aggregate stats iteration")
		return KindResource
	}

	m.runIterTask(task)
	return m.sendMultipartReply(ver, cxnID, xid, ofp.MultipartTypeAggregate, &agg)
}

// tableStats implements the synchronous table-stats path (spec
// §4.4.3).
func (m *StateManager) tableStats(ver ofp.Ver, cxnID uint64, xid uint32) Kind {
	stats, err := m.FWD.TableStatsGet(&ofp.TableStats{Table: ofp.TableAll})
	if err != nil {
		m.log.WithError(err).Warn("failed to read table stats")
		return KindResource
	}
	return m.sendMultipartReply(ver, cxnID, xid, ofp.MultipartTypeTable, stats)
}

// portStats implements the synchronous port-stats path (spec §4.4.3).
func (m *StateManager) portStats(ver ofp.Ver, cxnID uint64, xid uint32, req *ofp.PortStatsRequest) Kind {
	stats, err := m.PORT.StatsGet(req)
	if err != nil {
		m.log.WithError(err).Warn("failed to read port stats")
		return KindResource
	}
	return m.sendMultipartReply(ver, cxnID, xid, ofp.MultipartTypePortStats, stats)
}

// queueErrorCause classifies a queue lookup failure per spec §4.8: a
// malformed or absent port is BAD_PORT, a queue id not found on an
// otherwise valid port is BAD_QUEUE, and anything else falls back to
// the generic unhandled code rather than guessing.
func queueErrorCause(err error) wireCause {
	switch {
	case errors.Is(err, ErrParam):
		return causeQueueBadPort
	case errors.Is(err, ErrNotFound):
		return causeQueueBadQueue
	default:
		return causeUnhandled
	}
}

// queueStats implements the synchronous queue-stats path (spec
// §4.4.3): unlike the other stats paths, a queue lookup failure is a
// named wire error (spec §4.8), not silent RESOURCE.
func (m *StateManager) queueStats(ver ofp.Ver, cxnID uint64, xid uint32, req *ofp.QueueStatsRequest) Kind {
	stats, err := m.PORT.QueueStatsGet(req)
	if err != nil {
		m.log.WithError(err).Warn("failed to read queue stats")
		m.sendError(ver, cxnID, xid, queueErrorCause(err))
		return KindResource
	}
	return m.sendMultipartReply(ver, cxnID, xid, ofp.MultipartTypeQueue, stats)
}

// descStats implements the synchronous switch-description path (spec
// §4.4.3).
func (m *StateManager) descStats(ver ofp.Ver, cxnID uint64, xid uint32) Kind {
	desc, err := m.PORT.DescStatsGet()
	if err != nil {
		m.log.WithError(err).Warn("failed to read switch description")
		return KindResource
	}
	return m.sendMultipartReply(ver, cxnID, xid, ofp.MultipartTypeDescription, desc)
}

// portDescStats implements the synchronous port-description path
// (spec §4.4.3).
func (m *StateManager) portDescStats(ver ofp.Ver, cxnID uint64, xid uint32) Kind {
	ports, err := m.PORT.FeaturesGet()
	if err != nil {
		m.log.WithError(err).Warn("failed to read port descriptions")
		return KindResource
	}
	return m.sendMultipartReply(ver, cxnID, xid, ofp.MultipartTypePortDescription, portList(ports))
}

// HandleQueueGetConfigRequest implements the queue-configuration path
// (spec §4.4.3); unlike the other stats paths this message carries its
// own top-level type rather than riding the multipart envelope, and a
// lookup failure is a named QUEUE_OP_FAILED wire error (spec §4.8)
// rather than silent RESOURCE.
func (m *StateManager) HandleQueueGetConfigRequest(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.QueueGetConfigRequest) Kind {
	reply, err := m.PORT.QueueConfigGet(msg)
	if err != nil {
		m.log.WithError(err).Warn("failed to read queue configuration")
		m.sendError(ver, cxnID, xid, queueErrorCause(err))
		return KindResource
	}

	req, err := newReply(ver, of.TypeQueueGetConfigReply, xid, reply)
	if err != nil {
		m.log.WithError(err).Warn("failed to encode queue configuration reply")
		return KindResource
	}

	if err := m.CXN.Send(cxnID, req); err != nil {
		m.log.WithError(err).Warn("failed to send queue configuration reply")
	}
	return KindNone
}
