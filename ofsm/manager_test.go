package ofsm

import (
	"sync"
	"time"

	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// fakeFWD is a hand-written FWD test double recording every call it
// receives, with injectable failures per method.
type fakeFWD struct {
	mu sync.Mutex

	created map[FlowId]*ofp.FlowMod
	stats   map[FlowId]FlowStats

	createErr      error
	modifyErr      error
	deleteErr      error
	tableStatsErr  error
	featuresErr    error
	experimenterErr error

	createCalls []FlowId
	modifyCalls []FlowId
	deleteCalls []FlowId

	resolvedTable ofp.Table
	caps          ofp.Capability
}

func newFakeFWD() *fakeFWD {
	return &fakeFWD{
		created: make(map[FlowId]*ofp.FlowMod),
		stats:   make(map[FlowId]FlowStats),
	}
}

func (f *fakeFWD) PacketOut(msg *ofp.PacketOut) error { return nil }

func (f *fakeFWD) FlowCreate(id FlowId, msg *ofp.FlowMod) (ofp.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, id)
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created[id] = msg
	if f.resolvedTable != 0 {
		return f.resolvedTable, nil
	}
	return msg.Table, nil
}

func (f *fakeFWD) FlowModify(id FlowId, msg *ofp.FlowMod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modifyCalls = append(f.modifyCalls, id)
	return f.modifyErr
}

func (f *fakeFWD) FlowDelete(id FlowId) (FlowStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	if f.deleteErr != nil {
		return FlowStats{}, f.deleteErr
	}
	stats := f.stats[id]
	delete(f.created, id)
	return stats, nil
}

func (f *fakeFWD) FlowStatsGet(id FlowId) FlowStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[id]
}

func (f *fakeFWD) TableStatsGet(req *ofp.TableStats) (*ofp.TableStats, error) {
	if f.tableStatsErr != nil {
		return nil, f.tableStatsErr
	}
	return &ofp.TableStats{Table: req.Table, ActiveCount: uint32(len(f.created))}, nil
}

func (f *fakeFWD) ForwardingFeaturesGet() (ofp.Capability, error) {
	return f.caps, f.featuresErr
}

func (f *fakeFWD) Experimenter(msg *ofp.Experimenter, cxnID uint64) error {
	return f.experimenterErr
}

// fakePORT is a hand-written PORT test double.
type fakePORT struct {
	modifyErr       error
	experimenterErr error
	queueStatsErr   error
	queueConfigErr  error
	ports           []ofp.Port
	desc            *ofp.Description

	modifyCalls []*ofp.PortMod
}

func (p *fakePORT) Modify(msg *ofp.PortMod) error {
	p.modifyCalls = append(p.modifyCalls, msg)
	return p.modifyErr
}

func (p *fakePORT) StatsGet(req *ofp.PortStatsRequest) (*ofp.PortStats, error) {
	return &ofp.PortStats{PortNo: req.PortNo}, nil
}

func (p *fakePORT) QueueConfigGet(req *ofp.QueueGetConfigRequest) (*ofp.QueueGetConfigReply, error) {
	if p.queueConfigErr != nil {
		return nil, p.queueConfigErr
	}
	return &ofp.QueueGetConfigReply{Port: req.Port}, nil
}

func (p *fakePORT) QueueStatsGet(req *ofp.QueueStatsRequest) (*ofp.QueueStats, error) {
	if p.queueStatsErr != nil {
		return nil, p.queueStatsErr
	}
	return &ofp.QueueStats{Port: req.Port, Queue: req.Queue}, nil
}

func (p *fakePORT) DescStatsGet() (*ofp.Description, error) {
	if p.desc != nil {
		return p.desc, nil
	}
	return &ofp.Description{}, nil
}

func (p *fakePORT) FeaturesGet() ([]ofp.Port, error) {
	return p.ports, nil
}

func (p *fakePORT) Experimenter(msg *ofp.Experimenter, cxnID uint64) error {
	return p.experimenterErr
}

// fakeCXN is a hand-written CXN test double recording every reply and
// error sent, keyed by connection id.
type fakeCXN struct {
	mu sync.Mutex

	sent   []*of.Request
	errors []fakeCXNError

	sendErr      error
	sendErrorErr error
}

type fakeCXNError struct {
	cxnID uint64
	xid   uint32
	typ   ofp.ErrType
	code  ofp.ErrCode
}

func newFakeCXN() *fakeCXN { return &fakeCXN{} }

func (c *fakeCXN) Send(cxnID uint64, reply *of.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, reply)
	return nil
}

func (c *fakeCXN) SendError(ver ofp.Ver, cxnID uint64, xid uint32, typ ofp.ErrType, code ofp.ErrCode, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErrorErr != nil {
		return c.sendErrorErr
	}
	c.errors = append(c.errors, fakeCXNError{cxnID: cxnID, xid: xid, typ: typ, code: code})
	return nil
}

func (c *fakeCXN) lastError() (fakeCXNError, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errors) == 0 {
		return fakeCXNError{}, false
	}
	return c.errors[len(c.errors)-1], true
}

// fakeCORE is a fixed datapath identity test double.
type fakeCORE uint64

func (f fakeCORE) DpidGet() uint64 { return uint64(f) }

// newTestManager wires a StateManager around fresh fakes and a
// never-yielding scheduler, so iteration tasks always run to
// completion in a single Advance call.
func newTestManager() (*StateManager, *fakeFWD, *fakePORT, *fakeCXN) {
	fwd := newFakeFWD()
	port := &fakePORT{}
	cxn := newFakeCXN()
	soc := NewSliceScheduler(0, time.Unix(1000, 0))
	m := NewStateManager(fwd, port, cxn, soc, fakeCORE(42))
	return m, fwd, port, cxn
}

// exactMatch builds a Match with a single fully-specified in-port
// field, used throughout the flow-mod and stats tests as a minimal
// concrete match.
func exactMatch(port uint32) ofp.Match {
	v := make(ofp.XMValue, 4)
	v[0] = byte(port >> 24)
	v[1] = byte(port >> 16)
	v[2] = byte(port >> 8)
	v[3] = byte(port)
	return ofp.Match{
		Type: ofp.MatchTypeXM,
		Fields: []ofp.XM{
			{Class: ofp.XMClassOpenflowBasic, Type: ofp.XMTypeInPort, Value: v},
		},
	}
}
