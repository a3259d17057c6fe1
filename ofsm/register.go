package ofsm

import (
	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// CxnIDFunc resolves the connection identifier a StateManager uses to
// key CXN.Send calls from an inbound request. The connection layer
// that owns this mapping is out of scope (spec §6); Register only
// needs some such function to bridge an *of.Request to the cxnID the
// rest of the core already speaks in terms of.
type CxnIDFunc func(*of.Request) uint64

// Register wires every message type this core understands to m's
// handler methods on mux (spec §4.1, §4.4-§4.7). cxnID resolves the
// connection identifier of each inbound request.
func Register(mux *of.ServeMux, m *StateManager, cxnID CxnIDFunc) {
	mux.HandleFunc(of.TypeHello, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.Hello
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode hello")
			return
		}
		m.HandleHello(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypeEchoReply, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.EchoReply
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode echo reply")
			return
		}
		m.HandleEchoReply(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypeSetConfig, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.SwitchConfig
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode set-config")
			return
		}
		m.HandleSetConfig(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypeGetConfigRequest, func(rw of.ResponseWriter, r *of.Request) {
		m.HandleGetConfig(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID)
	})

	mux.HandleFunc(of.TypeSetAsync, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.AsyncConfig
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode set-async")
			return
		}
		m.HandleSetAsync(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypeAsynchRequest, func(rw of.ResponseWriter, r *of.Request) {
		m.HandleGetAsync(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID)
	})

	mux.HandleFunc(of.TypeFeaturesRequest, func(rw of.ResponseWriter, r *of.Request) {
		m.HandleFeaturesRequest(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID)
	})

	mux.HandleFunc(of.TypeTableMod, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.TableMod
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode table-mod")
			return
		}
		m.HandleTableMod(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypePacketOut, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.PacketOut
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode packet-out")
			return
		}
		m.HandlePacketOut(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypePortMod, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.PortMod
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode port-mod")
			return
		}
		m.HandlePortMod(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypeFlowMod, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.FlowMod
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode flow-mod")
			return
		}
		m.HandleFlowMod(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypeMultipartRequest, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.MultipartRequest
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode multipart request")
			return
		}
		m.HandleMultipartRequest(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypeQueueGetConfigRequest, func(rw of.ResponseWriter, r *of.Request) {
		var msg ofp.QueueGetConfigRequest
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode queue-get-config request")
			return
		}
		m.HandleQueueGetConfigRequest(ofp.Ver(r.Header.Version), cxnID(r), r.Header.XID, &msg)
	})

	mux.HandleFunc(of.TypeExperiment, func(rw of.ResponseWriter, r *of.Request) {
		registerExperimenter(m, cxnID(r), r)
	})
}

// registerExperimenter decodes the shared experimenter header, then
// dispatches to the BSN extension handlers when Experimenter names
// ExperimenterBSN, or to the generic dual-dispatch path otherwise
// (spec §4.5, §4.7).
func registerExperimenter(m *StateManager, cxn uint64, r *of.Request) {
	ver := ofp.Ver(r.Header.Version)
	xid := r.Header.XID

	var hdr ofp.Experimenter
	if _, err := hdr.ReadFrom(r.Body); err != nil {
		m.log.WithError(err).Warn("failed to decode experimenter header")
		return
	}

	if hdr.Experimenter != ofp.ExperimenterBSN {
		m.HandleExperimenter(ver, cxn, xid, &hdr)
		return
	}

	switch hdr.ExpType {
	case ofp.BSNSetIPMaskType:
		var msg ofp.BSNSetIPMask
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode bsn set-ip-mask")
			return
		}
		m.HandleBSNSetIPMask(ver, cxn, xid, &msg)

	case ofp.BSNGetIPMaskRequestType:
		var msg ofp.BSNGetIPMaskRequest
		if _, err := msg.ReadFrom(r.Body); err != nil {
			m.log.WithError(err).Warn("failed to decode bsn get-ip-mask request")
			return
		}
		m.HandleBSNGetIPMaskRequest(ver, cxn, xid, &msg)

	case ofp.BSNHybridGetRequestType:
		var msg ofp.BSNHybridGetRequest
		m.HandleBSNHybridGetRequest(ver, cxn, xid, &msg)

	default:
		m.unhandled(ver, cxn, xid)
	}
}
