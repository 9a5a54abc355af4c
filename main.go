// Package main is the entry point for hl, a structured log viewer.
package main

import (
	"github.com/dalibo/hl/cmd"
)

// version, commit, and date are overridden at build time via
// -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
