package main

import (
	"sync"

	"github.com/ofswitch/ofsm/ofp"
	"github.com/ofswitch/ofsm/ofsm"
)

// demoCore is a fixed datapath identity (ofsm.CORE).
type demoCore uint64

func (d demoCore) DpidGet() uint64 { return uint64(d) }

// demoBackend is a minimal in-memory stand-in for the forwarding
// plane and port manager (ofsm.FWD, ofsm.PORT): it tracks per-flow
// counters and a fixed single port, enough to run ofswitchd against a
// real controller without a real datapath behind it. It is not a
// production forwarding plane.
type demoBackend struct {
	mu    sync.Mutex
	flows map[ofsm.FlowId]ofsm.FlowStats
}

func newDemoBackend() *demoBackend {
	return &demoBackend{flows: make(map[ofsm.FlowId]ofsm.FlowStats)}
}

func (b *demoBackend) PacketOut(msg *ofp.PacketOut) error {
	return nil
}

func (b *demoBackend) FlowCreate(id ofsm.FlowId, msg *ofp.FlowMod) (ofp.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flows[id] = ofsm.FlowStats{}
	return msg.Table, nil
}

func (b *demoBackend) FlowModify(id ofsm.FlowId, msg *ofp.FlowMod) error {
	return nil
}

func (b *demoBackend) FlowDelete(id ofsm.FlowId) (ofsm.FlowStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := b.flows[id]
	delete(b.flows, id)
	return stats, nil
}

func (b *demoBackend) FlowStatsGet(id ofsm.FlowId) ofsm.FlowStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flows[id]
}

func (b *demoBackend) TableStatsGet(req *ofp.TableStats) (*ofp.TableStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &ofp.TableStats{Table: req.Table, ActiveCount: uint32(len(b.flows))}, nil
}

func (b *demoBackend) ForwardingFeaturesGet() (ofp.Capability, error) {
	return ofp.CapabilityFlowStats | ofp.CapabilityTableStats, nil
}

func (b *demoBackend) Experimenter(msg *ofp.Experimenter, cxnID uint64) error {
	return ofsm.ErrNotSupported
}

func (b *demoBackend) Modify(msg *ofp.PortMod) error {
	return nil
}

func (b *demoBackend) StatsGet(req *ofp.PortStatsRequest) (*ofp.PortStats, error) {
	return &ofp.PortStats{PortNo: req.PortNo}, nil
}

func (b *demoBackend) QueueConfigGet(req *ofp.QueueGetConfigRequest) (*ofp.QueueGetConfigReply, error) {
	return &ofp.QueueGetConfigReply{Port: req.Port}, nil
}

func (b *demoBackend) QueueStatsGet(req *ofp.QueueStatsRequest) (*ofp.QueueStats, error) {
	return &ofp.QueueStats{Port: req.Port, Queue: req.Queue}, nil
}

func (b *demoBackend) DescStatsGet() (*ofp.Description, error) {
	return &ofp.Description{
		Manufacturer: "ofswitch",
		Hardware:     "ofsm-demo",
		Software:     "ofswitchd",
	}, nil
}

func (b *demoBackend) FeaturesGet() ([]ofp.Port, error) {
	return nil, nil
}
