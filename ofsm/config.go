package ofsm

import (
	"errors"

	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// supportedVersions lists the wire versions this core negotiates,
// highest first.
var supportedVersions = []ofp.Ver{ofp.Ver13, ofp.Ver12, ofp.Ver11, ofp.Ver10}

// negotiateVersion picks the highest version both this core and a
// peer advertising bitmaps support, falling back to proposed when the
// peer's hello carries no version-bitmap element (spec §4.5 "HELLO:
// accept, release", extended per SPEC_FULL.md to actually read the
// optional bitmap rather than trust the header version blindly).
func negotiateVersion(proposed ofp.Ver, msg *ofp.Hello) ofp.Ver {
	var bitmap *ofp.HelloElemVersionBitmap
	for _, elem := range msg.Elements {
		if bm, ok := elem.(*ofp.HelloElemVersionBitmap); ok {
			bitmap = bm
			break
		}
	}
	if bitmap == nil {
		return proposed
	}

	supportsBit := func(v ofp.Ver) bool {
		word := int(v) / 32
		bit := uint(int(v) % 32)
		if word >= len(bitmap.Bitmaps) {
			return false
		}
		return bitmap.Bitmaps[word]&(1<<bit) != 0
	}

	for _, v := range supportedVersions {
		if supportsBit(v) {
			return v
		}
	}
	return proposed
}

// HandleHello completes the initial handshake (spec §4.5): it
// negotiates the agreed wire version from the peer's advertised
// bitmap, logs it, and releases the message. No reply is sent here;
// the connection layer owns replying with its own HELLO per spec §6.
func (m *StateManager) HandleHello(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.Hello) Kind {
	agreed := negotiateVersion(ver, msg)
	m.log.WithField("version", agreed).Info("negotiated hello version")
	return KindNone
}

// HandleEchoReply accepts a solicited echo reply and takes no further
// action (spec §4.5).
func (m *StateManager) HandleEchoReply(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.EchoReply) Kind {
	return KindNone
}

// HandleSetConfig stores the controller-supplied flags and
// miss-send-len and marks the global configuration as having been set
// at least once (spec §4.5, spec §3 "Global switch config").
func (m *StateManager) HandleSetConfig(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.SwitchConfig) Kind {
	m.Config.Flags = uint16(msg.Flags)
	m.Config.MissSendLen = msg.MissSendLength
	m.Config.ConfigSetDone = true
	return KindNone
}

// HandleGetConfig replies with the current flags and miss-send-len,
// echoing xid (spec §4.5).
func (m *StateManager) HandleGetConfig(ver ofp.Ver, cxnID uint64, xid uint32) Kind {
	reply := &ofp.SwitchConfig{
		Flags:          ofp.ConfigFlag(m.Config.Flags),
		MissSendLength: m.Config.MissSendLen,
	}

	req, err := newReply(ver, of.TypeGetConfigReply, xid, reply)
	if err != nil {
		m.log.WithError(err).Warn("failed to encode get-config reply")
		return KindResource
	}

	if err := m.CXN.Send(cxnID, req); err != nil {
		m.log.WithError(err).Warn("failed to send get-config reply")
	}
	return KindNone
}

// HandleSetAsync stores the controller-supplied asynchronous-message
// reason masks (SPEC_FULL.md supplemented config surface).
func (m *StateManager) HandleSetAsync(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.AsyncConfig) Kind {
	m.Config.Async = *msg
	return KindNone
}

// HandleGetAsync replies with the currently configured asynchronous
// reason masks, echoing xid (SPEC_FULL.md supplemented config
// surface).
func (m *StateManager) HandleGetAsync(ver ofp.Ver, cxnID uint64, xid uint32) Kind {
	reply := m.Config.Async

	req, err := newReply(ver, of.TypeAsyncReply, xid, &reply)
	if err != nil {
		m.log.WithError(err).Warn("failed to encode get-async reply")
		return KindResource
	}

	if err := m.CXN.Send(cxnID, req); err != nil {
		m.log.WithError(err).Warn("failed to send get-async reply")
	}
	return KindNone
}

// HandleFeaturesRequest replies with the datapath id, a zero buffer
// count (this core never buffers packets itself), and the
// capability/port feature bits reported by FWD and PORT (spec §4.5).
func (m *StateManager) HandleFeaturesRequest(ver ofp.Ver, cxnID uint64, xid uint32) Kind {
	caps, err := m.FWD.ForwardingFeaturesGet()
	if err != nil {
		m.log.WithError(err).Warn("failed to read forwarding capabilities")
	}

	ports, err := m.PORT.FeaturesGet()
	if err != nil {
		m.log.WithError(err).Warn("failed to read port features")
	}

	features := &ofp.SwitchFeatures{
		DatapathID:   m.dpid(),
		NumBuffers:   0,
		NumTables:    1,
		Capabilities: caps,
	}

	body := of.MultiWriterTo(features, portList(ports))

	req, err := newReply(ver, of.TypeFeaturesReply, xid, body)
	if err != nil {
		m.log.WithError(err).Warn("failed to encode features reply")
		return KindResource
	}

	if err := m.CXN.Send(cxnID, req); err != nil {
		m.log.WithError(err).Warn("failed to send features reply")
	}
	return KindNone
}

// HandleTableMod accepts and ignores a table modification request: no
// table properties are configurable by this core (spec §4.5).
func (m *StateManager) HandleTableMod(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.TableMod) Kind {
	return KindNone
}

// HandlePacketOut forwards an outbound packet to FWD; no reply is ever
// sent for this message (spec §4.5).
func (m *StateManager) HandlePacketOut(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.PacketOut) Kind {
	if err := m.FWD.PacketOut(msg); err != nil {
		m.log.WithError(err).Warn("forwarding plane rejected packet-out")
		return KindUnknown
	}
	return KindNone
}

// HandlePortMod forwards a port modification to PORT, surfacing
// PORT_MOD_FAILED/BAD_PORT on failure (spec §4.5).
func (m *StateManager) HandlePortMod(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.PortMod) Kind {
	if err := m.PORT.Modify(msg); err != nil {
		m.log.WithError(err).Warn("port manager rejected port modification")
		m.sendError(ver, cxnID, xid, causePortModFailed)
		return KindNone
	}
	return KindNone
}

// HandleExperimenter duplicates an experimenter message to both FWD
// and PORT and reconciles their two outcomes (spec §4.5): if both
// report NOT_SUPPORTED, BAD_REQUEST/BAD_EXPERIMENTER is sent; if
// either succeeds, the message is treated as handled; otherwise the
// first non-NONE error is surfaced as unhandled.
func (m *StateManager) HandleExperimenter(ver ofp.Ver, cxnID uint64, xid uint32, msg *ofp.Experimenter) Kind {
	fwdErr := m.FWD.Experimenter(msg, cxnID)
	portErr := m.PORT.Experimenter(msg, cxnID)

	if fwdErr == nil || portErr == nil {
		return KindNone
	}

	if errors.Is(fwdErr, ErrNotSupported) && errors.Is(portErr, ErrNotSupported) {
		m.sendError(ver, cxnID, xid, causeExperimenterNotSupported)
		return KindNotSupported
	}

	m.log.WithError(fwdErr).Warn("experimenter message rejected")
	return m.unhandled(ver, cxnID, xid)
}

// HandleExperimenterStats rejects a multipart request carrying an
// experimenter-defined stats type: this core defines no experimenter
// stats (spec §4.5).
func (m *StateManager) HandleExperimenterStats(ver ofp.Ver, cxnID uint64, xid uint32) Kind {
	return m.unhandled(ver, cxnID, xid)
}
