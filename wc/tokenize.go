package wc

// IsWordChar reports whether b belongs to a word: an ASCII letter, an
// ASCII digit or an apostrophe.
func IsWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '\''
}

func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}

// CountSpan tokenizes data and adds one occurrence per token to out.
func CountSpan(data []byte, out Counter) {
	tok := make([]byte, 0, 32)
	for _, b := range data {
		if IsWordChar(b) {
			tok = append(tok, toLower(b))
			continue
		}
		if len(tok) > 0 {
			out[string(tok)]++
			tok = tok[:0]
		}
	}
	if len(tok) > 0 {
		out[string(tok)]++
	}
}

// Count tokenizes data into a fresh counter.
func Count(data []byte) Counter {
	out := make(Counter)
	CountSpan(data, out)
	return out
}
