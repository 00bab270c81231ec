package portalapi

// SanitizeNaN rewrites bare NaN tokens (optionally signed) to 0 so the
// analytics payload can be decoded as JSON. Text inside string literals is
// left untouched.
func SanitizeNaN(in []byte) []byte {
	out := make([]byte, 0, len(in))
	inString := false
	escaped := false
	for i := 0; i < len(in); i++ {
		ch := in[i]
		if inString {
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			out = append(out, ch)
			continue
		}
		start := i
		if (ch == '-' || ch == '+') && i+1 < len(in) && in[i+1] == 'N' {
			i++
		}
		if isNaNAt(in, i) && !identChar(prev(in, start)) {
			out = append(out, '0')
			i += 2
			continue
		}
		i = start
		out = append(out, ch)
	}
	return out
}

func isNaNAt(in []byte, i int) bool {
	if i+3 > len(in) || in[i] != 'N' || in[i+1] != 'a' || in[i+2] != 'N' {
		return false
	}
	return i+3 == len(in) || !identChar(in[i+3])
}

func prev(in []byte, i int) byte {
	if i == 0 {
		return 0
	}
	return in[i-1]
}

func identChar(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}
