package ofsm

import (
	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// CXN is the controller connection layer collaborator (spec §6). Its
// internals — the TCP/TLS transport and wire framing — are out of
// scope; the core only consumes this contract.
type CXN interface {
	// Send transmits reply on the connection identified by cxnID.
	// Implementations take ownership of reply on success.
	Send(cxnID uint64, reply *of.Request) error

	// SendError assembles and transmits an error reply.
	SendError(ver ofp.Ver, cxnID uint64, xid uint32, typ ofp.ErrType, code ofp.ErrCode, payload []byte) error
}

// FWD is the forwarding-plane collaborator (spec §6).
type FWD interface {
	PacketOut(msg *ofp.PacketOut) error
	FlowCreate(id FlowId, msg *ofp.FlowMod) (ofp.Table, error)
	FlowModify(id FlowId, msg *ofp.FlowMod) error
	FlowDelete(id FlowId) (FlowStats, error)
	FlowStatsGet(id FlowId) FlowStats
	TableStatsGet(req *ofp.TableStats) (*ofp.TableStats, error)
	ForwardingFeaturesGet() (ofp.Capability, error)
	Experimenter(msg *ofp.Experimenter, cxnID uint64) error
}

// PORT is the port-manager collaborator (spec §6).
type PORT interface {
	Modify(msg *ofp.PortMod) error
	StatsGet(req *ofp.PortStatsRequest) (*ofp.PortStats, error)
	QueueConfigGet(req *ofp.QueueGetConfigRequest) (*ofp.QueueGetConfigReply, error)
	QueueStatsGet(req *ofp.QueueStatsRequest) (*ofp.QueueStats, error)
	DescStatsGet() (*ofp.Description, error)
	FeaturesGet() ([]ofp.Port, error)
	Experimenter(msg *ofp.Experimenter, cxnID uint64) error
}

// CORE exposes process identity to handlers (spec §6).
type CORE interface {
	DpidGet() uint64
}

// FlowStats is the counters snapshot FWD reports for one flow entry
// (packet/byte counts as of the call).
type FlowStats struct {
	PacketCount uint64
	ByteCount   uint64
}

// SOC is the cooperative-scheduler collaborator (spec §6): it decides
// when a handler-spawned iteration task yields and supplies the
// current time. The bundled Scheduler implementation
// (NewSliceScheduler) is a synchronous stand-in sufficient to exercise
// the yield contract in tests; a production deployment wires SOC to
// the real event loop's timer wheel, whose internals remain out of
// scope here (spec §1).
type SOC interface {
	Scheduler
}
