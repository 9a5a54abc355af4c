package record

import "bytes"

// SplitPrefix looks for a '{' on the first line of entry and, if one is
// found preceded by at least one non-whitespace byte, returns the bytes
// before it as a prefix span and the bytes from '{' onward as the
// remainder to hand to the JSON parser (spec.md §4.B, §6:
// "--allow-prefix: arbitrary bytes up to the first '{' on the same
// line; preserved as a prefix span").
//
// When allow is false, or no suitable '{' is found, prefix is nil and
// rest is entry unchanged.
func SplitPrefix(entry []byte, allow bool) (prefix, rest []byte) {
	if !allow {
		return nil, entry
	}

	firstLine := entry
	if nl := bytes.IndexByte(entry, '\n'); nl >= 0 {
		firstLine = entry[:nl]
	}

	brace := bytes.IndexByte(firstLine, '{')
	if brace <= 0 {
		return nil, entry
	}
	if len(bytes.TrimSpace(firstLine[:brace])) == 0 {
		return nil, entry
	}

	return entry[:brace], entry[brace:]
}
