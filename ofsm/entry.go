package ofsm

import (
	"time"

	"github.com/ofswitch/ofsm/ofp"
)

// FlowId identifies one installed flow entry, process-wide unique
// while the entry lives in the Flow Table. Zero is reserved as
// "invalid" (spec §3).
type FlowId uint32

// Effects carries a flow entry's forwarding behavior: exactly one of
// Actions or Instructions is populated, chosen by Ver (spec §3 "Flow
// Entry", invariant "exactly one of actions/instructions").
type Effects struct {
	Ver          ofp.Ver
	Actions      ofp.Actions
	Instructions ofp.Instructions
}

// outputPorts returns every port named by an output action or
// apply/write-actions instruction within e, used to evaluate a
// query's out_port filter.
func (e Effects) outputPorts() []ofp.PortNo {
	var ports []ofp.PortNo
	for _, a := range e.Actions {
		if out, ok := a.(*ofp.ActionOutput); ok {
			ports = append(ports, out.Port)
		}
	}
	for _, ins := range e.Instructions {
		var acts ofp.Actions
		switch t := ins.(type) {
		case *ofp.InstructionApplyActions:
			acts = t.Actions
		case *ofp.InstructionWriteActions:
			acts = t.Actions
		}
		for _, a := range acts {
			if out, ok := a.(*ofp.ActionOutput); ok {
				ports = append(ports, out.Port)
			}
		}
	}
	return ports
}

// FlowEntry is one installed flow (C2).
type FlowEntry struct {
	ID         FlowId
	TableID    ofp.Table
	Priority   uint16
	Match      ofp.Match
	Cookie     uint64
	IdleTimeout uint16
	HardTimeout uint16
	Flags      ofp.FlowModFlag
	Effects    Effects
	InsertTime time.Time

	// deleted marks an entry unlinked from the table but still held by
	// an in-flight iteration task (see Flow Table's cancellation and
	// snapshot rules, spec §4.2 and §5).
	deleted bool
}

func (e *FlowEntry) outputsTo(port ofp.PortNo) bool {
	for _, p := range e.Effects.outputPorts() {
		if p == port {
			return true
		}
	}
	return false
}

// SendFlowRemoved reports whether e.Flags requests a flow_removed
// notification on deletion.
func (e *FlowEntry) SendFlowRemoved() bool {
	return e.Flags&ofp.FlowFlagSendFlowRem != 0
}
