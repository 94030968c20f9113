package payload

import "strings"

// FrameKind identifies how a raw payload envelope was framed on the wire.
// The caller uses it to tell "the collector reported an error" apart from
// "the body was empty" when choosing a user-facing message.
type FrameKind int

const (
	// FrameBare means the input was already an unframed JSON body.
	FrameBare FrameKind = iota
	// FrameEmpty means the input was empty or whitespace only.
	FrameEmpty
	// FrameErrorSentinel means the input began with the literal "Error"
	// marker the collector emits when it could not reach the panel.
	FrameErrorSentinel
	// FrameLengthPrefixed means an ASCII digit run plus whitespace was
	// stripped from the front of the input.
	FrameLengthPrefixed
	// FrameNewlineSplit means the body was taken from after the first
	// newline of a prefix-line framed input.
	FrameNewlineSplit
)

func (k FrameKind) String() string {
	switch k {
	case FrameBare:
		return "bare"
	case FrameEmpty:
		return "empty"
	case FrameErrorSentinel:
		return "error_sentinel"
	case FrameLengthPrefixed:
		return "length_prefixed"
	case FrameNewlineSplit:
		return "newline_split"
	default:
		return "unknown"
	}
}

// errorSentinel is the in-band marker for a transport-level failure. It
// signals "no data", not a decode failure.
const errorSentinel = "Error"

// Strip removes the optional ASCII length-prefix framing from a raw payload
// envelope and returns the canonical JSON body. It never fails: anything
// ambiguous falls through to returning the trimmed input unchanged.
func Strip(raw string) (string, FrameKind) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", FrameEmpty
	}
	if strings.HasPrefix(trimmed, errorSentinel) {
		return "", FrameErrorSentinel
	}

	// A leading run of ASCII digits followed by whitespace is a length
	// prefix. The declared length itself is not trusted; the prefix is
	// simply discarded.
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i > 0 && i < len(trimmed) && isSpace(trimmed[i]) {
		return strings.TrimSpace(trimmed[i:]), FrameLengthPrefixed
	}

	// Prefix-line framing: the body sits after the first newline.
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		return strings.TrimSpace(trimmed[idx+1:]), FrameNewlineSplit
	}

	return trimmed, FrameBare
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
