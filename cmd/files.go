// Package cmd implements the command-line interface for hl.
package cmd

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dalibo/hl/internal/source"
)

// nextInputID hands out a unique, monotonically increasing id to every
// opened source, including archive members (spec.md §4.A).
var inputIDCounter int64

func nextInputID() int {
	return int(atomic.AddInt64(&inputIDCounter, 1)) - 1
}

// openSources resolves the command line's file arguments (or standard
// input, when none are given) into opened Sources, expanding archives
// into one Source per member.
func openSources(args []string) ([]*source.Source, error) {
	if len(args) == 1 && args[0] == "-" {
		return []*source.Source{source.Stdin(nextInputID())}, nil
	}
	if len(args) == 0 {
		return []*source.Source{source.Stdin(nextInputID())}, nil
	}

	paths := collectFiles(args)
	sources := make([]*source.Source, 0, len(paths))
	for _, p := range paths {
		if source.IsArchive(p) {
			members, err := source.OpenArchive(p, nextInputID)
			if err != nil {
				log.Printf("[WARN] failed to open archive %s: %v", p, err)
				continue
			}
			sources = append(sources, members...)
			continue
		}
		s, err := source.Open(p, nextInputID())
		if err != nil {
			log.Printf("[WARN] failed to open %s: %v", p, err)
			continue
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// collectFiles gathers all log files from the provided arguments.
// Arguments can be:
//   - Individual files
//   - Glob patterns (e.g., "*.log")
//   - Directories (scans for supported log files, non-recursive)
func collectFiles(args []string) []string {
	var files []string

	for _, arg := range args {
		// Check if argument is a directory
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			// Scan directory for supported log files
			dirFiles, err := gatherLogFiles(arg)
			if err != nil {
				log.Printf("[WARN] Failed to read directory %s: %v", arg, err)
				continue
			}
			files = append(files, dirFiles...)
			continue
		}

		// Try to expand as glob pattern
		matches, err := filepath.Glob(arg)
		if err != nil {
			log.Printf("[WARN] Invalid pattern %s: %v", arg, err)
			continue
		}

		if len(matches) == 0 {
			log.Printf("[WARN] No files match pattern: %s", arg)
			continue
		}

		files = append(files, matches...)
	}

	return files
}

// gatherLogFiles scans a directory for supported log files (non-recursive).
func gatherLogFiles(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}

	var logFiles []string
	for _, entry := range entries {
		// Skip subdirectories
		if entry.IsDir() {
			continue
		}

		if isSupportedLogFile(entry.Name()) {
			logFiles = append(logFiles, filepath.Join(dir, entry.Name()))
		}
	}

	return logFiles, nil
}

// isSupportedLogFile reports whether the file name looks like a supported log format.
// Accepted extensions:
//   - .log, .json, .txt
//   - .log.gz, .json.gz, .txt.gz
//   - .log.zst, .log.zstd, .json.zst, .json.zstd, .txt.zst, .txt.zstd
//   - .tar, .tar.gz, .tgz, .tar.zst, .tar.zstd, .tzst, .7z
func isSupportedLogFile(name string) bool {
	lower := strings.ToLower(name)
	supported := []string{
		".log",
		".json",
		".txt",
		".log.gz",
		".json.gz",
		".txt.gz",
		".log.zst",
		".log.zstd",
		".json.zst",
		".json.zstd",
		".txt.zst",
		".txt.zstd",
		".tar",
		".tar.gz",
		".tgz",
		".tar.zst",
		".tar.zstd",
		".tzst",
		".7z",
	}

	for _, ext := range supported {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
