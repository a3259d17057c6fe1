package ofp

import "fmt"

// Ver identifies the wire version of an OpenFlow message or of a flow
// entry's installed instruction set. The numeric values match the
// version field carried in the OpenFlow header.
type Ver uint8

const (
	// Ver10 is OpenFlow 1.0.0.
	Ver10 Ver = 0x01

	// Ver11 is OpenFlow 1.1.0.
	Ver11 Ver = 0x02

	// Ver12 is OpenFlow 1.2.0.
	Ver12 Ver = 0x03

	// Ver13 is OpenFlow 1.3.0.
	Ver13 Ver = 0x04
)

func (v Ver) String() string {
	switch v {
	case Ver10:
		return "1.0"
	case Ver11:
		return "1.1"
	case Ver12:
		return "1.2"
	case Ver13:
		return "1.3"
	default:
		return fmt.Sprintf("Ver(%d)", uint8(v))
	}
}

// UsesInstructions reports whether flow entries installed under this
// version carry an instruction set rather than a flat action list.
// Instructions were introduced in OpenFlow 1.1.
func (v Ver) UsesInstructions() bool {
	return v >= Ver11
}

// HasCookieMatch reports whether a match query of this version
// consults the cookie and cookie mask fields. Cookie-based flow
// matching was introduced in OpenFlow 1.1.
func (v Ver) HasCookieMatch() bool {
	return v >= Ver11
}

// HasTableID reports whether messages of this version carry an
// explicit table identifier. Multiple flow tables were introduced in
// OpenFlow 1.1.
func (v Ver) HasTableID() bool {
	return v > Ver10
}
