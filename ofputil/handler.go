package ofputil

import (
	"bytes"

	log "github.com/sirupsen/logrus"

	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
)

// EchoHandler returns a request handler that replies on each request
// with an echo message carrying the same data as was retrieved in the
// original message.
//
// The method accepts an optional handler, executed after a successful
// reply.
func EchoHandler(h of.Handler) of.Handler {
	fn := func(rw of.ResponseWriter, r *of.Request) {
		var req ofp.EchoRequest

		if _, err := req.ReadFrom(r.Body); err != nil {
			log.WithError(err).Warn("ofputil: failed to read echo request")
			return
		}

		rw.Header().Set(of.VersionHeaderKey, r.Header.Version)
		rw.Header().Set(of.TypeHeaderKey, of.TypeEchoReply)
		rw.Header().Set(of.XIDHeaderKey, r.Header.XID)

		var buf bytes.Buffer
		if _, err := (&ofp.EchoReply{Data: req.Data}).WriteTo(&buf); err != nil {
			log.WithError(err).Warn("ofputil: failed to marshal echo reply")
			return
		}

		if _, err := rw.Write(buf.Bytes()); err != nil {
			log.WithError(err).Warn("ofputil: failed to buffer echo reply")
			return
		}
		if err := rw.WriteHeader(); err != nil {
			log.WithError(err).Warn("ofputil: failed to send echo reply")
			return
		}

		if h != nil {
			h.Serve(rw, r)
		}
	}

	return of.HandlerFunc(fn)
}

// HelloHandler returns a simple request handler that replies to each
// request with a hello message advertising version, echoing the
// request's transaction id.
//
// The method accepts an optional handler, executed after a successful
// reply.
func HelloHandler(version uint8, h of.Handler) of.Handler {
	fn := func(rw of.ResponseWriter, r *of.Request) {
		rw.Header().Set(of.VersionHeaderKey, version)
		rw.Header().Set(of.TypeHeaderKey, of.TypeHello)
		rw.Header().Set(of.XIDHeaderKey, r.Header.XID)

		if err := rw.WriteHeader(); err != nil {
			log.WithError(err).Warn("ofputil: failed to send hello")
			return
		}

		if h != nil {
			h.Serve(rw, r)
		}
	}

	return of.HandlerFunc(fn)
}
