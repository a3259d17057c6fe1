package ofsm

import (
	"github.com/sirupsen/logrus"

	"github.com/ofswitch/ofsm/ofp"
)

// SwitchConfig is the process-wide global switch configuration (spec
// §3 "Global switch config"), set by SET_CONFIG and read by
// GET_CONFIG and the datapath's miss path.
type SwitchConfig struct {
	Flags         uint16
	MissSendLen   uint16
	ConfigSetDone bool

	DescSoftware     string
	DescHardware     string
	DescManufacturer string
	DescSerialNum    string
	DescDatapath     string

	// Async holds the asynchronous-message reason masks set by
	// SET_ASYNC and echoed by GET_ASYNC (OF1.3 control surface, not
	// named by the flow/stats component design but part of the real
	// wire library).
	Async ofp.AsyncConfig
}

// IPMaskTable is the 256-slot BSN ip-mask extension backing store
// (spec §3 "IP-mask table").
type IPMaskTable struct {
	slots [256]uint32
}

// Get returns the mask at index, or ErrRange if index is out of
// bounds.
func (t *IPMaskTable) Get(index uint8) (uint32, error) {
	if int(index) >= len(t.slots) {
		return 0, ErrRange
	}
	return t.slots[index], nil
}

// Set writes mask at index, or returns ErrRange if index is out of
// bounds.
func (t *IPMaskTable) Set(index uint8, mask uint32) error {
	if int(index) >= len(t.slots) {
		return ErrRange
	}
	t.slots[index] = mask
	return nil
}

// StateManager is the single, process-wide instance of the OFSM core
// (spec §9 "Process-wide counters"): it owns the Flow Table, the
// global switch configuration, the ip-mask table, and the two
// monotonic id allocators, and wires the handler methods of C5-C7 to
// an inbound dispatcher.
//
// The cooperative single-thread scheduling model (spec §5) means a
// single live StateManager needs no internal locking: every handler
// method runs to completion before the next is invoked.
type StateManager struct {
	FT     *FlowTable
	Config SwitchConfig
	IPMask IPMaskTable

	FlowIDs *IDAllocator
	XIDs    *IDAllocator

	FWD  FWD
	PORT PORT
	CXN  CXN
	SOC  SOC
	CORE CORE

	log *logrus.Entry
}

// NewStateManager wires a fresh state manager around the given
// collaborators (spec §6).
func NewStateManager(fwd FWD, port PORT, cxn CXN, soc SOC, core CORE) *StateManager {
	return &StateManager{
		FT:      NewFlowTable(),
		FlowIDs: NewIDAllocator(1),
		XIDs:    NewIDAllocator(1000),
		FWD:     fwd,
		PORT:    port,
		CXN:     cxn,
		SOC:     soc,
		CORE:    core,
		log:     logrus.WithField("subsystem", "ofsm"),
	}
}

// runIterTask drives task to completion against m.SOC, the cooperative
// scheduler. In a production deployment the scheduler interleaves
// Advance calls with its own event loop turns; this synchronous drive
// is the bundled stand-in described in collaborators.go.
func (m *StateManager) runIterTask(task *IterationTask) {
	RunToCompletion(task, m.SOC)
}

func (m *StateManager) nextXid() uint32 {
	return m.XIDs.Next()
}

func (m *StateManager) dpid() uint64 {
	if m.CORE == nil {
		return 0
	}
	return m.CORE.DpidGet()
}

func (m *StateManager) sendError(ver ofp.Ver, cxnID uint64, xid uint32, cause wireCause) {
	we := encodeError(cause, ver)
	if err := m.CXN.SendError(ver, cxnID, xid, we.Type, we.Code, nil); err != nil {
		m.log.WithError(err).Warn("failed to send error reply")
	}
}
