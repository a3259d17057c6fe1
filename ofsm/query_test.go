package ofsm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ofswitch/ofsm/ofp"
)

func wildcardMatch() ofp.Match {
	return ofp.Match{Type: ofp.MatchTypeXM}
}

func maskedMatch(value, mask uint32) ofp.Match {
	v := make(ofp.XMValue, 4)
	v[0], v[1], v[2], v[3] = byte(value>>24), byte(value>>16), byte(value>>8), byte(value)
	m := make(ofp.XMValue, 4)
	m[0], m[1], m[2], m[3] = byte(mask>>24), byte(mask>>16), byte(mask>>8), byte(mask)
	return ofp.Match{
		Type:   ofp.MatchTypeXM,
		Fields: []ofp.XM{{Class: ofp.XMClassOpenflowBasic, Type: ofp.XMTypeInPort, Value: v, Mask: m}},
	}
}

// TestNonStrictWildcardQueryImpliesAnyMatch checks ModeNonStrict's
// "query fields must be implied by entry" rule: an empty query matches
// every entry regardless of its own fields.
func TestNonStrictWildcardQueryImpliesAnyMatch(t *testing.T) {
	e := &FlowEntry{TableID: 1, Match: exactMatch(7)}
	q := &MatchQuery{TableID: TableAny, Mode: ModeNonStrict, Match: wildcardMatch(), OutPort: PortDestWildcard}
	assert.True(t, q.Matches(e))
}

// TestNonStrictExactQueryExcludesWildcardEntry checks the converse: a
// fully-specified query is not implied by an entry that never
// constrains the field at all.
func TestNonStrictExactQueryExcludesWildcardEntry(t *testing.T) {
	e := &FlowEntry{TableID: 1, Match: wildcardMatch()}
	q := &MatchQuery{TableID: TableAny, Mode: ModeNonStrict, Match: exactMatch(7), OutPort: PortDestWildcard}
	assert.False(t, q.Matches(e))
}

// TestNonStrictMaskedEntrySubsumesQuery checks that a masked entry
// satisfies a query constraining the same bits to the same value, and
// does not satisfy a query constraining more bits than the entry does.
func TestNonStrictMaskedEntrySubsumesQuery(t *testing.T) {
	e := &FlowEntry{TableID: 1, Match: maskedMatch(0x0a000000, 0xff000000)}
	q := &MatchQuery{TableID: TableAny, Mode: ModeNonStrict, Match: maskedMatch(0x0a000000, 0xff000000), OutPort: PortDestWildcard}
	assert.True(t, q.Matches(e))

	qNarrower := &MatchQuery{TableID: TableAny, Mode: ModeNonStrict, Match: maskedMatch(0x0a000000, 0xffff0000), OutPort: PortDestWildcard}
	assert.False(t, qNarrower.Matches(e), "entry constrains fewer bits than this query demands")
}

// TestOverlapDetectsSharedMatchSpace checks ModeOverlap: two entries at
// equal priority overlap when any value is consistent with both masks,
// even though the entry's match does not imply the query's.
func TestOverlapDetectsSharedMatchSpace(t *testing.T) {
	a := &FlowEntry{TableID: 1, Priority: 5, Match: maskedMatch(0x0a000000, 0xff000000)}
	q := &MatchQuery{TableID: TableAny, Mode: ModeOverlap, Priority: 5, Match: maskedMatch(0x0a0a0000, 0xffff0000), OutPort: PortDestWildcard}
	assert.True(t, q.Matches(a), "0x0a.. masked to /8 and 0x0a0a.. masked to /16 agree on the shared high byte")
}

// TestOverlapExcludesDifferentPriority checks that ModeOverlap never
// reports a conflict across different priorities even when the
// match-spaces would otherwise intersect.
func TestOverlapExcludesDifferentPriority(t *testing.T) {
	a := &FlowEntry{TableID: 1, Priority: 5, Match: wildcardMatch()}
	q := &MatchQuery{TableID: TableAny, Mode: ModeOverlap, Priority: 6, Match: wildcardMatch(), OutPort: PortDestWildcard}
	assert.False(t, q.Matches(a))
}

// TestOverlapIgnoresCookie checks that ModeOverlap never consults
// cookie/cookie_mask even when HasCookie is set, since overlap
// detection only concerns the match-space and priority.
func TestOverlapIgnoresCookie(t *testing.T) {
	e := &FlowEntry{TableID: 1, Priority: 5, Match: wildcardMatch(), Cookie: 0xaaaa}
	q := &MatchQuery{
		TableID: TableAny, Mode: ModeOverlap, Priority: 5, Match: wildcardMatch(),
		OutPort: PortDestWildcard, Cookie: 0xbbbb, CookieMask: 0xffff, HasCookie: true,
	}
	assert.True(t, q.Matches(e))
}

// TestOutPortFilterRequiresEntryToOutputThere checks the out_port
// restriction used by non-wildcard deletes and stats queries.
func TestOutPortFilterRequiresEntryToOutputThere(t *testing.T) {
	e := &FlowEntry{
		TableID: 1,
		Match:   wildcardMatch(),
		Effects: Effects{Ver: ofp.Ver13, Instructions: ofp.Instructions{
			&ofp.InstructionApplyActions{Actions: ofp.Actions{&ofp.ActionOutput{Port: 3}}},
		}},
	}

	hit := &MatchQuery{TableID: TableAny, Mode: ModeNonStrict, Match: wildcardMatch(), OutPort: 3}
	assert.True(t, hit.Matches(e))

	miss := &MatchQuery{TableID: TableAny, Mode: ModeNonStrict, Match: wildcardMatch(), OutPort: 4}
	assert.False(t, miss.Matches(e))
}
