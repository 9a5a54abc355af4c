package cmd

import "strings"

// strftimeToGo converts the small subset of strftime directives the
// config schema documents for time-format into a Go reference-time
// layout. Unrecognized directives pass through unchanged.
func strftimeToGo(layout string) string {
	if layout == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"%Y", "2006",
		"%m", "01",
		"%d", "02",
		"%H", "15",
		"%M", "04",
		"%S", "05",
		"%.3f", ".000",
		"%.6f", ".000000",
		"%.9f", ".000000000",
		"%z", "Z07:00",
		"%Z", "MST",
		"%%", "%",
	)
	return replacer.Replace(layout)
}
