package ofp

import (
	"io"

	"github.com/ofswitch/ofsm/internal/encoding"
)

// ExperimenterBSN is the Big Switch Networks experimenter identifier
// used to namespace the vendor extensions below, carried in the
// Experimenter field of an Experimenter message header.
const ExperimenterBSN uint32 = 0x005c16c7

// BSN experimenter sub-message types, carried in the ExpType field of
// an Experimenter message header whose Experimenter is ExperimenterBSN.
const (
	BSNSetIPMaskType uint32 = iota
	BSNGetIPMaskRequestType
	BSNGetIPMaskReplyType
	BSNHybridGetRequestType
	BSNHybridGetReplyType
)

// BSNSetIPMask installs the IP netmask used at index by the datapath's
// IP-match fast path.
type BSNSetIPMask struct {
	Index uint8
	Mask  uint32
}

// WriteTo implements io.WriterTo interface.
func (b *BSNSetIPMask) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, b.Index, pad3{}, b.Mask)
}

// ReadFrom implements io.ReaderFrom interface.
func (b *BSNSetIPMask) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &b.Index, &defaultPad3, &b.Mask)
}

// BSNGetIPMaskRequest asks the datapath for the netmask installed at
// Index.
type BSNGetIPMaskRequest struct {
	Index uint8
}

// WriteTo implements io.WriterTo interface.
func (b *BSNGetIPMaskRequest) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, b.Index, pad3{})
}

// ReadFrom implements io.ReaderFrom interface.
func (b *BSNGetIPMaskRequest) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &b.Index, &defaultPad3)
}

// BSNGetIPMaskReply carries the netmask installed at Index.
type BSNGetIPMaskReply struct {
	Index uint8
	Mask  uint32
}

// WriteTo implements io.WriterTo interface.
func (b *BSNGetIPMaskReply) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, b.Index, pad3{}, b.Mask)
}

// ReadFrom implements io.ReaderFrom interface.
func (b *BSNGetIPMaskReply) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &b.Index, &defaultPad3, &b.Mask)
}

// BSNHybridGetRequest carries no fields; its presence alone asks
// whether the datapath runs in hybrid (OpenFlow plus legacy L2/L3)
// mode.
type BSNHybridGetRequest struct{}

// WriteTo implements io.WriterTo interface.
func (b *BSNHybridGetRequest) WriteTo(w io.Writer) (int64, error) {
	return 0, nil
}

// ReadFrom implements io.ReaderFrom interface.
func (b *BSNHybridGetRequest) ReadFrom(r io.Reader) (int64, error) {
	return 0, nil
}

// BSNHybridGetReply answers a BSNHybridGetRequest.
type BSNHybridGetReply struct {
	HybridEnable  uint8
	HybridVersion uint8
}

// WriteTo implements io.WriterTo interface.
func (b *BSNHybridGetReply) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, b.HybridEnable, b.HybridVersion, pad2{})
}

// ReadFrom implements io.ReaderFrom interface.
func (b *BSNHybridGetReply) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &b.HybridEnable, &b.HybridVersion, &defaultPad2)
}
