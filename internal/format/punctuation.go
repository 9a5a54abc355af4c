package format

// Punctuation is the configurable separator table spec.md §4.F requires:
// every visible separator is drawn from here so ascii mode or a
// Unicode-less terminal can swap in a plain-text variant, mirroring the
// box-drawing table the teacher builds inline in output/text.go's
// FormatEventSummary, generalized into data instead of locals.
type Punctuation struct {
	KeyValueSep    string
	FieldSep       string
	ArraySep       string
	LoggerOpen     string
	LoggerClose    string
	CallerOpen     string
	CallerClose    string
	MessageQuote   string
	ObjectOpen     string
	ObjectClose    string
	EllipsisMarker string
}

// DefaultPunctuation uses Unicode separators.
func DefaultPunctuation() Punctuation {
	return Punctuation{
		KeyValueSep:    "=",
		FieldSep:       " ",
		ArraySep:       ", ",
		LoggerOpen:     "[",
		LoggerClose:    "]",
		CallerOpen:     "(",
		CallerClose:    ")",
		MessageQuote:   "«", // «
		ObjectOpen:     "{",
		ObjectClose:    "}",
		EllipsisMarker: "…", // …
	}
}

// ASCIIPunctuation is the fallback table for --ascii mode or terminals
// without Unicode support.
func ASCIIPunctuation() Punctuation {
	p := DefaultPunctuation()
	p.MessageQuote = "\""
	p.EllipsisMarker = "..."
	return p
}
