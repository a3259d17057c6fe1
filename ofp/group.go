package ofp

// Group defines a group identifier.
//
// Group tables are not implemented by this datapath (see the
// Non-goals of the state manager), but the identifier type is kept
// for wire compatibility with flow modification and statistics
// messages that carry an OutGroup field.
type Group uint32

const (
	// GroupAny indicates no restriction on the output group, used in
	// flow delete and flow stats requests.
	GroupAny Group = 0xffffffff

	// GroupMax is the last usable group number.
	GroupMax Group = 0xffffff00

	// GroupAll represents all groups for group delete commands.
	GroupAll Group = 0xfffffffc
)

// Meter defines a meter identifier.
//
// Meter tables are not implemented by this datapath (see the Non-goals
// of the state manager); the identifier type is kept so that the
// apply-meter instruction still round-trips on the wire.
type Meter uint32
