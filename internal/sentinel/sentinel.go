// internal/sentinel/sentinel.go
// Package sentinel defines the reserved reply strings that generated scripts
// return in place of throwing. The scripting host does not carry in-page
// exceptions across the process boundary as typed errors, so failures travel
// back on the data channel as one of these literals.
//
// Only script generators (the composer and the host dialog scripts, which
// emit them) and the execution protocol (which decodes them) should import
// this package.
//
// A page whose real content equals one of these literals is indistinguishable
// from the sentinel. That limitation is accepted.
package sentinel

// Kind identifies a reserved reply.
type Kind int

const (
	// None means the reply is not a sentinel.
	None Kind = iota
	ElementNotFound
	FrameNotFound
	CellNotFound
	NoResponse
	ExtraActionSuccess
)

var literals = map[Kind]string{
	ElementNotFound:    "__docdriver_element_unfound__",
	FrameNotFound:      "__docdriver_frame_unfound__",
	CellNotFound:       "__docdriver_cell_unfound__",
	NoResponse:         "__docdriver_no_response__",
	ExtraActionSuccess: "__docdriver_extra_action__",
}

var kinds = func() map[string]Kind {
	m := make(map[string]Kind, len(literals))
	for k, lit := range literals {
		m[lit] = k
	}
	return m
}()

// Literal returns the wire string for k, or "" for None.
func Literal(k Kind) string {
	return literals[k]
}

// Return renders a JS statement that returns the sentinel for k.
func Return(k Kind) string {
	return "return '" + literals[k] + "';"
}

// Decode reports which sentinel, if any, a host reply carries. Only string
// replies can be sentinels.
func Decode(reply any) Kind {
	s, ok := reply.(string)
	if !ok {
		return None
	}
	return kinds[s]
}

func (k Kind) String() string {
	switch k {
	case ElementNotFound:
		return "ElementNotFound"
	case FrameNotFound:
		return "FrameNotFound"
	case CellNotFound:
		return "CellNotFound"
	case NoResponse:
		return "NoResponse"
	case ExtraActionSuccess:
		return "ExtraActionSuccess"
	default:
		return "None"
	}
}
