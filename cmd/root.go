// Package cmd implements the command-line interface for hl.
// It uses the Cobra library to handle commands, flags, and execution.
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// Version information (passed from main)
var (
	version string
	commit  string
	date    string
)

// Flag variables for command-line options.
// These are package-level variables as required by Cobra's flag binding.
var (
	// Mode flags
	sortFlag       bool   // -s/--sort: chronological merge across streams
	followFlag     bool   // -F/--follow: keep reading as files grow
	syncIntervalMs int    // --sync-interval-ms: follow-mode reorder window
	tailFlag       int    // --tail: only keep the last N records per stream

	// Filtering flags
	levelFlag  []string // -l/--level: minimum level to keep (the lowest one given wins)
	sinceFlag  string   // --since: drop records before this time
	untilFlag  string   // --until: drop records after this time
	filterFlag []string // -f/--filter: repeatable query expressions, ANDed
	queryFlag  string   // -q/--query: single query expression

	// Output flags
	colorFlag       string   // --color: auto|always|never
	colorAlwaysFlag bool     // -c/--color-always: shorthand for --color=always
	themeFlag       string   // --theme: theme name
	themeOverlay    []string // --theme-overlay: repeatable overlay names
	rawFlag         bool     // -r/--raw: copy block bytes verbatim
	rawFieldsFlag   bool     // --raw-fields: render field values unquoted/unescaped
	hideFlag        []string // -h/--hide: repeatable hide/!reveal patterns
	hideEmptyFlag   bool     // -e/--hide-empty-fields
	flattenFlag     string   // --flatten: never|always
	timeFormatFlag  string   // -t/--time-format: strftime-style layout
	timeZoneFlag    string   // -Z/--time-zone: IANA zone name
	localFlag       bool     // -L/--local: render timestamps in local time
	inputInfoFlag   string   // --input-info: auto|none|minimal|compact|full|json
	asciiFlag       string   // --ascii: auto|always|never
	expansionFlag   string   // -x/--expansion: never|inline|auto|always
	outputFlag      string   // -o/--output: write to a file instead of stdout

	// Input flags
	inputFormatFlag string // --input-format: auto|json|logfmt
	timestampUnit   string // --unix-timestamp-unit: auto|s|ms|us|ns
	allowPrefixFlag bool   // --allow-prefix
	delimiterFlag   string // --delimiter: auto|cr|lf|crlf|nul

	// Advanced flags
	interruptIgnoreCount int      // --interrupt-ignore-count
	bufferSizeFlag       string   // --buffer-size: human-readable size
	maxMessageSizeFlag   string   // --max-message-size: human-readable size
	concurrencyFlag      int      // -C/--concurrency
	pagingFlag           string   // --paging: auto|always|never
	pagingNeverFlag      bool     // -P/--paging-never: shorthand for --paging=never
	configPaths          []string // --config: repeatable, "-" disables implicit configs
	listThemesFlag       string   // --list-themes[=tags]
	dumpIndexFlag        bool     // --dump-index
)

// rootCmd is the main command for the hl CLI.
var rootCmd = &cobra.Command{
	Use:   "hl [files...]",
	Short: "Structured log viewer",
	Long: `hl reads JSON, logfmt, or pretty-printed JSON logs from files, pipes, or
archives, merges multiple streams chronologically or sequentially, filters
by time and predicate, and renders them with a configurable theme.

Specify log files as arguments, or omit them to read from standard input.`,
	RunE: executeRun,
}

// Execute runs the root command.
// This is called by main.go to start the CLI application.
func Execute(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

// init initializes all command-line flags.
func init() {
	// Mode flags
	rootCmd.Flags().BoolVarP(&sortFlag, "sort", "s", false,
		"Merge input streams in chronological order")
	rootCmd.Flags().BoolVarP(&followFlag, "follow", "F", false,
		"Keep reading as inputs grow, implies --sort")
	rootCmd.Flags().IntVar(&syncIntervalMs, "sync-interval-ms", 100,
		"Follow-mode reorder window, in milliseconds")
	rootCmd.Flags().IntVar(&tailFlag, "tail", 0,
		"Only keep the last N records per stream (0 = unlimited)")

	// Filtering flags
	rootCmd.Flags().StringSliceVarP(&levelFlag, "level", "l", nil,
		"Minimum level to display (trace|debug|info|warning|error)")
	rootCmd.Flags().StringVar(&sinceFlag, "since", "",
		"Drop records timestamped before this time")
	rootCmd.Flags().StringVar(&untilFlag, "until", "",
		"Drop records timestamped after this time")
	rootCmd.Flags().StringSliceVarP(&filterFlag, "filter", "f", nil,
		"Query expression; may be repeated, combined with AND")
	rootCmd.Flags().StringVarP(&queryFlag, "query", "q", "",
		"Query expression")

	// Output flags
	rootCmd.Flags().StringVar(&colorFlag, "color", "auto",
		"Color output: auto|always|never")
	rootCmd.Flags().BoolVarP(&colorAlwaysFlag, "color-always", "c", false,
		"Shorthand for --color=always")
	rootCmd.Flags().StringVar(&themeFlag, "theme", "default",
		"Theme name")
	rootCmd.Flags().StringSliceVar(&themeOverlay, "theme-overlay", nil,
		"Theme overlay; may be repeated")
	rootCmd.Flags().BoolVarP(&rawFlag, "raw", "r", false,
		"Copy each matching record's original bytes instead of reformatting")
	rootCmd.Flags().BoolVar(&rawFieldsFlag, "raw-fields", false,
		"Render field values unquoted and unescaped")
	rootCmd.Flags().StringSliceVarP(&hideFlag, "hide", "h", nil,
		"Hide a field key; prefix with ! to reveal, !* to reveal all")
	rootCmd.Flags().BoolVarP(&hideEmptyFlag, "hide-empty-fields", "e", false,
		"Hide fields with an empty string, array, or object value")
	rootCmd.Flags().StringVar(&flattenFlag, "flatten", "never",
		"Flatten nested keys: never|always")
	rootCmd.Flags().StringVarP(&timeFormatFlag, "time-format", "t", "",
		"strftime-style timestamp layout")
	rootCmd.Flags().StringVarP(&timeZoneFlag, "time-zone", "Z", "",
		"IANA time zone name for rendered timestamps")
	rootCmd.Flags().BoolVarP(&localFlag, "local", "L", false,
		"Render timestamps in the local time zone")
	rootCmd.Flags().StringVar(&inputInfoFlag, "input-info", "auto",
		"Input-source annotation: auto|none|minimal|compact|full|json")
	rootCmd.Flags().StringVar(&asciiFlag, "ascii", "auto",
		"ASCII punctuation fallback: auto|always|never")
	rootCmd.Flags().StringVarP(&expansionFlag, "expansion", "x", "auto",
		"Multi-line value expansion: never|inline|auto|always")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "",
		"Write output to a file instead of stdout")

	// Input flags
	rootCmd.Flags().StringVar(&inputFormatFlag, "input-format", "auto",
		"Input record format: auto|json|logfmt")
	rootCmd.Flags().StringVar(&timestampUnit, "unix-timestamp-unit", "auto",
		"Numeric timestamp unit: auto|s|ms|us|ns")
	rootCmd.Flags().BoolVar(&allowPrefixFlag, "allow-prefix", false,
		"Allow and preserve a non-JSON prefix before a JSON entry")
	rootCmd.Flags().StringVar(&delimiterFlag, "delimiter", "auto",
		"Entry boundary detection: auto|cr|lf|crlf|nul")

	// Advanced flags
	rootCmd.Flags().IntVar(&interruptIgnoreCount, "interrupt-ignore-count", 3,
		"Number of interrupt signals to ignore before terminating")
	rootCmd.Flags().StringVar(&bufferSizeFlag, "buffer-size", "2MiB",
		"Target block size per input source")
	rootCmd.Flags().StringVar(&maxMessageSizeFlag, "max-message-size", "1MiB",
		"Maximum entry size before truncation")
	rootCmd.Flags().IntVarP(&concurrencyFlag, "concurrency", "C", 0,
		"Worker pool size (0 = CPU count)")
	rootCmd.Flags().StringVar(&pagingFlag, "paging", "auto",
		"Pager handoff: auto|always|never")
	rootCmd.Flags().BoolVarP(&pagingNeverFlag, "paging-never", "P", false,
		"Shorthand for --paging=never")
	rootCmd.Flags().StringSliceVar(&configPaths, "config", nil,
		"Config file path; may be repeated; '-' disables implicit configs")
	rootCmd.Flags().StringVar(&listThemesFlag, "list-themes", "",
		"List known theme names and exit; a tag value is accepted but does not filter the list")
	rootCmd.Flags().Lookup("list-themes").NoOptDefVal = "all"
	rootCmd.Flags().BoolVar(&dumpIndexFlag, "dump-index", false,
		"Dump the Block Index for each processed block as JSON instead of formatted output")
}
