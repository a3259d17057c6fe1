// Command ofswitchd runs the OpenFlow state-manager core against a
// TCP listener, wiring the cooperative scheduler, the connection
// registry, and a minimal in-memory forwarding/port backend.
//
// The forwarding plane and port manager are genuinely out of scope
// for this core (the collaborator interfaces in ofsm/collaborators.go
// model them); the implementations below are a reference backend
// sufficient to run the daemon stand-alone, not a production
// datapath, in the same spirit as ofsm.NewSliceScheduler's bundled
// SOC stand-in.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	of "github.com/ofswitch/ofsm"
	"github.com/ofswitch/ofsm/ofp"
	"github.com/ofswitch/ofsm/ofsm"
)

func main() {
	addr := flag.String("addr", "0.0.0.0:6633", "listen address")
	dpid := flag.Uint64("dpid", 1, "datapath identifier advertised to controllers")
	flag.Parse()

	log := logrus.WithField("subsystem", "ofswitchd")

	registry := newConnRegistry()
	core := demoCore(*dpid)
	backend := newDemoBackend()

	manager := ofsm.NewStateManager(backend, backend, registry, ofsm.NewSliceScheduler(64, time.Now()), core)

	mux := of.NewServeMux()
	ofsm.Register(mux, manager, registry.cxnID)

	ln, err := of.Listen("tcp", *addr)
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}
	log.WithField("addr", *addr).Info("listening for openflow connections")

	for {
		conn, err := ln.AcceptOFP()
		if err != nil {
			log.WithError(err).Error("failed to accept connection")
			continue
		}

		id := registry.add(conn)
		go serveConn(log, mux, registry, id, conn)
	}
}

// serveConn reads requests from conn until it errs out, dispatching
// each through mux before releasing the connection from the registry.
func serveConn(log *logrus.Entry, mux *of.ServeMux, registry *connRegistry, id uint64, conn of.Conn) {
	defer func() {
		registry.remove(id)
		conn.Close()
	}()

	var rw noopResponseWriter
	for {
		req, err := conn.Receive()
		if err != nil {
			log.WithError(err).Debug("connection closed")
			return
		}

		req.Addr = connAddr(id)
		mux.Serve(rw, req)
	}
}

// connAddr lets a registry id round-trip through Request.Addr without
// requiring a real net.Addr; cxnID below unwraps it directly.
type connAddr uint64

func (a connAddr) Network() string { return "ofsm" }
func (a connAddr) String() string  { return fmt.Sprintf("cxn-%d", uint64(a)) }

// connRegistry tracks live connections by an opaque id, backing the
// CXN collaborator (spec §6).
type connRegistry struct {
	mu   sync.RWMutex
	next uint64
	byID map[uint64]of.Conn
}

func newConnRegistry() *connRegistry {
	return &connRegistry{byID: make(map[uint64]of.Conn)}
}

func (r *connRegistry) add(conn of.Conn) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := r.next
	r.byID[id] = conn
	return id
}

func (r *connRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// cxnID recovers the registry id a request's connAddr carries, used as
// the ofsm.CxnIDFunc passed to ofsm.Register.
func (r *connRegistry) cxnID(req *of.Request) uint64 {
	if addr, ok := req.Addr.(connAddr); ok {
		return uint64(addr)
	}
	return 0
}

// Send implements ofsm.CXN.
func (r *connRegistry) Send(cxnID uint64, reply *of.Request) error {
	r.mu.RLock()
	conn, ok := r.byID[cxnID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("ofswitchd: unknown connection %d", cxnID)
	}

	if err := conn.Send(reply); err != nil {
		return err
	}
	return conn.Flush()
}

// SendError implements ofsm.CXN.
func (r *connRegistry) SendError(ver ofp.Ver, cxnID uint64, xid uint32, typ ofp.ErrType, code ofp.ErrCode, payload []byte) error {
	body := &ofp.Error{Type: typ, Code: code, Data: payload}

	rd, err := of.NewReader(body)
	if err != nil {
		return err
	}

	req, err := of.NewRequest(of.TypeError, rd)
	if err != nil {
		return err
	}
	req.Header.Version = uint8(ver)
	req.Header.XID = xid

	return r.Send(cxnID, req)
}

// noopResponseWriter satisfies of.ResponseWriter for handlers that
// never reply through the request/response cycle: every registered
// handler in ofsm/register.go replies, when it replies at all,
// through the CXN collaborator rather than the ResponseWriter.
type noopResponseWriter struct{}

func (noopResponseWriter) Header() of.Header           { return noopHeader{} }
func (noopResponseWriter) Write(b []byte) (int, error)  { return len(b), nil }
func (noopResponseWriter) WriteHeader() error           { return nil }
func (noopResponseWriter) Close() error                 { return nil }
func (noopResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, errors.New("ofswitchd: hijack not supported")
}

type noopHeader struct{}

func (noopHeader) Set(k of.HeaderKey, v interface{}) error { return nil }
func (noopHeader) Get(k of.HeaderKey) interface{}          { return nil }
func (noopHeader) Len() int                                { return 0 }
func (noopHeader) WriteTo(w io.Writer) (int64, error)      { return 0, nil }
func (noopHeader) ReadFrom(r io.Reader) (int64, error)     { return 0, nil }
