package serialmux

import "bytes"

// maxFrameBytes bounds a single payload frame (1MB). A declared length
// beyond this is treated as line noise and the prefix is re-scanned as a
// plain line.
const maxFrameBytes = 1 << 20

// maxLengthDigits bounds the digit run accepted as a length prefix. Eight
// digits covers anything under maxFrameBytes with room to reject absurd
// declarations cheaply.
const maxLengthDigits = 8

// ScanFrames is a bufio.SplitFunc that tokenizes the panel byte stream into
// payload frames. Panels emit either bare newline-terminated JSON or a
// length-prefixed envelope ("123 {...}") whose body may itself contain
// newlines. The prefix is kept in the emitted token; the payload layer
// strips it again so a frame is self-describing wherever it travels.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	// Skip leading whitespace between frames.
	start := 0
	for start < len(data) && isFrameSpace(data[start]) {
		start++
	}
	if start == len(data) {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	// A run of ASCII digits at the head may be a length prefix.
	digits := 0
	for start+digits < len(data) && digits < maxLengthDigits && data[start+digits] >= '0' && data[start+digits] <= '9' {
		digits++
	}

	if digits > 0 && digits < maxLengthDigits {
		if start+digits == len(data) && !atEOF {
			// Prefix may continue, wait for more bytes.
			return start, nil, nil
		}
		if start+digits < len(data) && isFrameSpace(data[start+digits]) {
			n := 0
			for _, c := range data[start : start+digits] {
				n = n*10 + int(c-'0')
			}
			if n <= maxFrameBytes {
				body := start + digits + 1
				if len(data)-body < n {
					if atEOF {
						// Truncated frame at stream end, flush what we have.
						return len(data), bytes.TrimSpace(data[start:]), nil
					}
					return start, nil, nil
				}
				return body + n, data[start : body+n], nil
			}
		}
	}

	// Plain line-oriented frame.
	if i := bytes.IndexByte(data[start:], '\n'); i >= 0 {
		return start + i + 1, bytes.TrimRight(data[start:start+i], "\r"), nil
	}
	if atEOF {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

func isFrameSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
