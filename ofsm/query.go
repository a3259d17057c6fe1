package ofsm

import (
	"bytes"

	"github.com/ofswitch/ofsm/ofp"
)

// Mode selects the matching semantics a MatchQuery is evaluated under
// (spec §3 "Match Query").
type Mode int

const (
	// ModeStrict requires exact equality of match, priority, and
	// cookie-masked cookie.
	ModeStrict Mode = iota

	// ModeNonStrict requires the query's exactly-specified fields to
	// be implied by the entry's match; priority is ignored.
	ModeNonStrict

	// ModeOverlap requires only that the match-spaces of query and
	// entry intersect at equal priority; cookie is ignored.
	ModeOverlap
)

// TableAny is the sentinel table_id meaning "every table".
const TableAny = ofp.TableAll

// PortDestWildcard is the sentinel out_port meaning "any port".
const PortDestWildcard ofp.PortNo = 0xffffffff

// MatchQuery is a normalized predicate over flow entries (C1).
type MatchQuery struct {
	TableID    ofp.Table
	Match      ofp.Match
	Mode       Mode
	Priority   uint16
	OutPort    ofp.PortNo
	Cookie     uint64
	CookieMask uint64

	// HasCookie records whether cookie/cookie_mask were populated for
	// this query (Ver < 1.1 queries never consult cookie).
	HasCookie bool
}

// Matches reports whether entry satisfies the query under q.Mode.
func (q *MatchQuery) Matches(e *FlowEntry) bool {
	if q.TableID != TableAny && q.TableID != e.TableID {
		return false
	}
	if !q.outPortMatches(e) {
		return false
	}

	switch q.Mode {
	case ModeStrict:
		return q.Priority == e.Priority &&
			q.cookieMatches(e) &&
			matchEqual(q.Match, e.Match)
	case ModeNonStrict:
		return q.cookieMatches(e) && matchImplies(q.Match, e.Match)
	case ModeOverlap:
		return q.Priority == e.Priority && matchOverlaps(q.Match, e.Match)
	default:
		return false
	}
}

func (q *MatchQuery) outPortMatches(e *FlowEntry) bool {
	if q.OutPort == PortDestWildcard {
		return true
	}
	return e.outputsTo(q.OutPort)
}

func (q *MatchQuery) cookieMatches(e *FlowEntry) bool {
	if q.Mode == ModeOverlap || !q.HasCookie {
		return true
	}
	return (q.Cookie & q.CookieMask) == (e.Cookie & q.CookieMask)
}

// matchEqual reports whether two matches specify the exact same set
// of fields with identical values and masks (strict equality).
func matchEqual(a, b ofp.Match) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for _, af := range a.Fields {
		bf := fieldOf(b, af.Type)
		if bf == nil {
			return false
		}
		if !bytes.Equal(af.Value, bf.Value) || !bytes.Equal(af.Mask, bf.Mask) {
			return false
		}
	}
	return true
}

// matchImplies reports whether every exactly-specified field of query
// is implied by entry's match: entry must constrain at least the same
// bits as query, to an equal value, wherever query constrains them.
// Fields query leaves unspecified place no constraint on entry.
func matchImplies(query, entry ofp.Match) bool {
	for _, qf := range query.Fields {
		ef := fieldOf(entry, qf.Type)
		if ef == nil {
			return false
		}
		if !fieldImplies(qf, *ef) {
			return false
		}
	}
	return true
}

// matchOverlaps reports whether the match-spaces of a and b share any
// point: for every field both specify, their masked values must agree
// at the bits both constrain; fields only one side specifies never
// preclude an overlap.
func matchOverlaps(a, b ofp.Match) bool {
	for _, af := range a.Fields {
		bf := fieldOf(b, af.Type)
		if bf == nil {
			continue
		}
		if !fieldsIntersect(af, *bf) {
			return false
		}
	}
	return true
}

func fieldOf(m ofp.Match, t ofp.XMType) *ofp.XM {
	for i := range m.Fields {
		if m.Fields[i].Type == t {
			return &m.Fields[i]
		}
	}
	return nil
}

// fieldImplies reports whether ef constrains at least the bits qf
// constrains, with an equal value wherever both constrain them.
func fieldImplies(qf, ef ofp.XM) bool {
	qmask := effectiveMask(qf)
	emask := effectiveMask(ef)

	n := len(qmask)
	if len(emask) < n || len(qf.Value) < n || len(ef.Value) < n {
		return false
	}

	for i := 0; i < n; i++ {
		// entry must constrain every bit query constrains.
		if qmask[i]&^emask[i] != 0 {
			return false
		}
		if (qf.Value[i]&qmask[i]) != (ef.Value[i]&qmask[i]) {
			return false
		}
	}
	return true
}

// fieldsIntersect reports whether there exists a value consistent
// with both af and bf's masked constraints.
func fieldsIntersect(af, bf ofp.XM) bool {
	amask := effectiveMask(af)
	bmask := effectiveMask(bf)

	n := len(amask)
	if len(bmask) < n {
		n = len(bmask)
	}
	if len(af.Value) < n || len(bf.Value) < n {
		return true
	}

	for i := 0; i < n; i++ {
		common := amask[i] & bmask[i]
		if (af.Value[i] & common) != (bf.Value[i] & common) {
			return false
		}
	}
	return true
}

// effectiveMask returns xm.Mask, or an all-ones mask the length of
// xm.Value when xm carries no explicit mask (a fully specified field).
func effectiveMask(xm ofp.XM) []byte {
	if len(xm.Mask) > 0 {
		return xm.Mask
	}
	mask := make([]byte, len(xm.Value))
	for i := range mask {
		mask[i] = 0xff
	}
	return mask
}
