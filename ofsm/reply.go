package ofsm

import (
	"io"

	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// wireVersion maps the internal Ver enum to the wire version byte
// carried in every OpenFlow header.
func wireVersion(ver ofp.Ver) uint8 {
	return uint8(ver)
}

// newReply builds an outbound request carrying body as an
// asynchronous or solicited reply message: version and xid set
// explicitly, typ naming the message type, body serialized as the
// request body.
func newReply(ver ofp.Ver, typ of.Type, xid uint32, body io.WriterTo) (*of.Request, error) {
	var rd io.Reader
	if body != nil {
		r, err := of.NewReader(body)
		if err != nil {
			return nil, err
		}
		rd = r
	}

	req, err := of.NewRequest(typ, rd)
	if err != nil {
		return nil, err
	}

	req.Header.Version = wireVersion(ver)
	req.Header.Type = typ
	req.Header.XID = xid
	return req, nil
}
