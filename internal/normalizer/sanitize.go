package normalizer

import "bytes"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const hexDigits = "0123456789abcdef"

// Sanitize escapes raw control characters found inside JSON string literals
// so a strict decoder accepts the payload. Control characters outside of
// literals that are not JSON whitespace are dropped.
func Sanitize(raw []byte) []byte {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var out bytes.Buffer
	out.Grow(len(raw) + len(raw)/16)

	inString := false
	escaped := false

	for _, b := range raw {
		if !inString {
			switch {
			case b == '"':
				inString = true
				out.WriteByte(b)
			case b < 0x20 && b != '\n' && b != '\r' && b != '\t':
				// drop
			default:
				out.WriteByte(b)
			}
			continue
		}

		if escaped {
			escaped = false
			if b < 0x20 {
				// A backslash followed by a raw control character
				writeEscapeLetter(&out, b)
				continue
			}
			out.WriteByte(b)
			continue
		}

		switch {
		case b == '\\':
			escaped = true
			out.WriteByte(b)
		case b == '"':
			inString = false
			out.WriteByte(b)
		case b < 0x20:
			out.WriteByte('\\')
			writeEscapeLetter(&out, b)
		default:
			out.WriteByte(b)
		}
	}

	return out.Bytes()
}

// writeEscapeLetter writes the part of an escape sequence after the backslash
func writeEscapeLetter(out *bytes.Buffer, b byte) {
	switch b {
	case '\n':
		out.WriteByte('n')
	case '\r':
		out.WriteByte('r')
	case '\t':
		out.WriteByte('t')
	case '\b':
		out.WriteByte('b')
	case '\f':
		out.WriteByte('f')
	default:
		out.WriteString("u00")
		out.WriteByte(hexDigits[b>>4])
		out.WriteByte(hexDigits[b&0x0F])
	}
}
