// Package cmd implements the command-line interface for hl.
package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dalibo/hl/internal/block"
	"github.com/dalibo/hl/internal/blockindex"
	"github.com/dalibo/hl/internal/config"
	"github.com/dalibo/hl/internal/format"
	"github.com/dalibo/hl/internal/humanize"
	"github.com/dalibo/hl/internal/pipeline"
	"github.com/dalibo/hl/internal/query"
	"github.com/dalibo/hl/internal/record"
	"github.com/dalibo/hl/internal/sink"
	"github.com/dalibo/hl/internal/source"
	"github.com/dalibo/hl/internal/theme"
)

// executeRun is the main execution function for the root command. It
// orchestrates the full pipeline:
//  1. Resolve effective settings (defaults, config files, env, flags).
//  2. Open every input source (files, stdin, archive members).
//  3. Run each source's Block Worker pool, restoring per-source order.
//  4. Combine sources sequentially or via chronological merge.
//  5. Write formatted output, honoring pager and interrupt handling.
func executeRun(cmd *cobra.Command, args []string) error {
	if listThemesFlag != "" || cmd.Flags().Changed("list-themes") {
		return runListThemes()
	}

	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	sources, err := openSources(args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		log.Println("[INFO] No log sources found. Exiting.")
		return nil
	}

	q, err := buildQuery()
	if err != nil {
		return err
	}

	resolver := buildResolver(settings)
	parser := record.New(parseInputFormat(inputFormatFlag), 32)
	fmtOpts, err := buildFormatOptions(settings, len(sources))
	if err != nil {
		return err
	}

	concurrency := pipeline.ResolveConcurrency(settings.Concurrency, len(sources))
	delimMode, ok := block.ParseMode(delimiterFlag)
	if !ok {
		log.Fatalf("[ERROR] Invalid --delimiter value %q", delimiterFlag)
	}
	bufferSize, err := humanize.ParseBytes(settings.BufferSize)
	if err != nil {
		return fmt.Errorf("invalid --buffer-size: %w", err)
	}
	maxMessageSize, err := humanize.ParseBytes(settings.MaxMessageSize)
	if err != nil {
		return fmt.Errorf("invalid --max-message-size: %w", err)
	}

	workerOpts := pipeline.WorkerOptions{
		DelimMode:      delimMode,
		MaxMessageSize: int(maxMessageSize),
		AllowPrefix:    allowPrefixFlag,
		Parser:         parser,
		Resolver:       resolver,
		Query:          q,
		Format:         fmtOpts,
		BuildIndex:     sortFlag || followFlag || dumpIndexFlag,
	}

	ignoreCount := settings.InterruptIgnoreCount
	if rootCmd.Flags().Changed("interrupt-ignore-count") {
		ignoreCount = interruptIgnoreCount
	}
	interrupts := sink.NewInterruptHandler(ignoreCount, followFlag, func(n int) {
		log.Printf("[WARN] interrupt %d of %d ignored", n, ignoreCount)
	})
	defer interrupts.Close()

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	s := sink.New(out)
	if out == os.Stdout {
		paging := parsePagingMode(pagingFlag, pagingNeverFlag)
		if err := s.MaybePage(paging, config.Pager()); err != nil {
			log.Printf("[WARN] failed to start pager: %v", err)
		}
	}
	defer s.Close()

	streams := make([]sourceStream, 0, len(sources))
	for _, src := range sources {
		st := runSource(src, workerOpts, concurrency, int(bufferSize), interrupts)
		if tailFlag > 0 {
			st.blocks = tailLimit(st.blocks, tailFlag)
		}
		streams = append(streams, st)
	}

	if dumpIndexFlag {
		dumpIndexes(streams, out)
		return nil
	}

	if sortFlag || followFlag {
		emitChronological(streams, q, s)
	} else {
		emitSequential(streams, s)
	}
	return nil
}

// resolveSettings layers defaults, config files, environment, and the
// CLI flags relevant to config-file keys.
func resolveSettings() (config.Settings, error) {
	disableImplicit := false
	var explicit []string
	for _, p := range configPaths {
		if p == "-" {
			disableImplicit = true
			continue
		}
		explicit = append(explicit, p)
	}

	var settings config.Settings
	var err error
	if disableImplicit {
		settings = config.Default()
		for _, p := range explicit {
			layer, lerr := config.LoadFile(p)
			if lerr != nil {
				return config.Settings{}, lerr
			}
			settings = config.Merge(settings, layer)
		}
	} else {
		settings, err = config.LoadLayered(explicit)
		if err != nil {
			return config.Settings{}, err
		}
	}
	settings = config.ApplyEnv(settings)

	// A flag left at its default must not mask an env or config value.
	changed := func(name, v string) string {
		if rootCmd.Flags().Changed(name) {
			return v
		}
		return ""
	}
	cliOverride := config.Settings{
		Theme:          changed("theme", themeFlag),
		ThemeOverlays:  themeOverlay,
		Concurrency:    concurrencyFlag,
		BufferSize:     changed("buffer-size", bufferSizeFlag),
		MaxMessageSize: changed("max-message-size", maxMessageSizeFlag),
		Formatting: config.Formatting{
			Flatten:   changed("flatten", flattenFlag),
			Expansion: changed("expansion", expansionFlag),
		},
	}
	if timeFormatFlag != "" {
		cliOverride.TimeFormat = timeFormatFlag
	}
	if timeZoneFlag != "" {
		cliOverride.TimeZone = timeZoneFlag
	}
	return config.Merge(settings, cliOverride), nil
}

func buildResolver(settings config.Settings) *record.Resolver {
	r := record.NewDefaultResolver()
	pf := settings.Fields.Predefined
	applyRole(r, record.RoleTime, pf.Time)
	applyRole(r, record.RoleLevel, pf.Level)
	applyRole(r, record.RoleMessage, pf.Message)
	applyRole(r, record.RoleLogger, pf.Logger)
	applyRole(r, record.RoleCaller, pf.Caller)
	applyRole(r, record.RoleCallerFile, pf.CallerFile)
	applyRole(r, record.RoleCallerLine, pf.CallerLine)

	for _, v := range pf.Variants {
		variant := record.LevelVariant{Name: v.Name, Values: map[record.Level][]string{
			record.LevelError:   v.Values["error"],
			record.LevelWarning: v.Values["warning"],
			record.LevelInfo:    v.Values["info"],
			record.LevelDebug:   v.Values["debug"],
			record.LevelTrace:   v.Values["trace"],
		}}
		r.AddLevelVariant(variant)
	}

	switch timestampUnit {
	case "s":
		r.UnixUnit = record.UnitSeconds
	case "ms":
		r.UnixUnit = record.UnitMillis
	case "us":
		r.UnixUnit = record.UnitMicros
	case "ns":
		r.UnixUnit = record.UnitNanos
	}
	return r
}

func applyRole(r *record.Resolver, role record.Role, rc config.RoleConfig) {
	if len(rc.Names) > 0 {
		r.RoleNames[role] = rc.Names
	}
	switch rc.Show {
	case "never":
		r.RoleShow[role] = record.ShowNever
	case "always":
		r.RoleShow[role] = record.ShowAlways
	}
}

func parseInputFormat(s string) record.Format {
	switch s {
	case "json":
		return record.FormatJSON
	case "logfmt":
		return record.FormatLogfmt
	default:
		return record.FormatAuto
	}
}

func buildQuery() (*query.Query, error) {
	exprs := append([]string{}, filterFlag...)
	if queryFlag != "" {
		exprs = append(exprs, queryFlag)
	}
	levelMask, err := parseLevelMask(levelFlag)
	if err != nil {
		return nil, err
	}
	since := parseTimeBound("--since", sinceFlag)
	until := parseTimeBound("--until", untilFlag)
	return query.New(exprs, levelMask, since, until)
}

func parseLevelMask(levels []string) (uint8, error) {
	if len(levels) == 0 {
		return record.AllLevelsMask, nil
	}
	var mask uint8
	minSeen := record.LevelError
	for _, lv := range levels {
		switch strings.ToLower(lv) {
		case "trace":
			minSeen = min(minSeen, record.LevelTrace)
		case "debug":
			minSeen = min(minSeen, record.LevelDebug)
		case "info":
			minSeen = min(minSeen, record.LevelInfo)
		case "warning", "warn":
			minSeen = min(minSeen, record.LevelWarning)
		case "error":
			minSeen = min(minSeen, record.LevelError)
		default:
			return 0, fmt.Errorf("unrecognized --level value %q", lv)
		}
	}
	for l := minSeen; l <= record.LevelError; l++ {
		mask |= l.Bit()
	}
	return mask, nil
}

// resolveInputInfoMode maps --input-info's six-way mode onto the
// Formatter's show/hide decision. "minimal", "compact", "full", and
// "json" all currently render the same `[input-name]` prefix the
// Formatter already writes, since distinguishing them would mean a
// second, structurally different rendering path; "none" suppresses it
// outright and "auto" shows it only when a run actually merges more
// than one input.
func resolveInputInfoMode(mode string, numSources int) bool {
	switch mode {
	case "none":
		return false
	case "auto":
		return numSources > 1
	default:
		return true
	}
}

func buildFormatOptions(settings config.Settings, numSources int) (format.Options, error) {
	asciiMode := asciiFlag == "always"
	hidePatterns := append(append([]string{}, settings.Fields.Hide...), settings.Fields.Ignore...)
	hidePatterns = append(hidePatterns, hideFlag...)
	vis, err := format.NewVisibility(hidePatterns)
	if err != nil {
		return format.Options{}, fmt.Errorf("invalid --hide pattern: %w", err)
	}

	th, _ := theme.Get(settings.Theme)
	if overrides := parseThemeOverlays(settings.ThemeOverlays); len(overrides) > 0 {
		th = theme.Overlay(th, overrides)
	}

	colorMode := colorFlag
	if colorAlwaysFlag {
		colorMode = "always"
	}
	useColor := colorMode == "always" || (colorMode == "auto" && sink.IsTerminal(os.Stdout))

	var expansion format.ExpansionMode
	switch settings.Formatting.Expansion {
	case "never":
		expansion = format.ExpandNever
	case "inline":
		expansion = format.ExpandInline
	case "always":
		expansion = format.ExpandAlways
	default:
		expansion = format.ExpandAuto
	}

	loc, err := resolveTimeLocation(settings.TimeZone, localFlag)
	if err != nil {
		return format.Options{}, err
	}

	return format.Options{
		Punct:       settings.Punctuation(asciiMode),
		Visibility:  vis,
		Flatten:     settings.Formatting.Flatten == "always",
		Expansion:   expansion,
		Prettify:    settings.Formatting.Prettify(),
		Raw:         rawFlag,
		RawFields:   rawFieldsFlag,
		HideEmpty:   hideEmptyFlag,
		Color:       useColor,
		Theme:       th,
		ShowInputID: resolveInputInfoMode(inputInfoFlag, numSources),
		TimeLayout:  strftimeToGo(settings.TimeFormat),
		Location:    loc,
	}, nil
}

// resolveTimeLocation picks the zone rendered timestamps are converted
// into. An explicit --time-zone name wins over --local, since naming a
// zone is the more specific request; --local falls back to the host's
// zone, and neither flag leaves timestamps in their own parsed offset.
func resolveTimeLocation(zone string, local bool) (*time.Location, error) {
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("invalid --time-zone %q: %w", zone, err)
		}
		return loc, nil
	}
	if local {
		return time.Local, nil
	}
	return nil, nil
}

func parsePagingMode(s string, neverShorthand bool) sink.PagingMode {
	if neverShorthand {
		return sink.PagingNever
	}
	switch s {
	case "always":
		return sink.PagingAlways
	case "never":
		return sink.PagingNever
	default:
		return sink.PagingAuto
	}
}

func openOutput() (*os.File, func(), error) {
	if outputFlag == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("opening --output %s: %w", outputFlag, err)
	}
	return f, func() { f.Close() }, nil
}

func runListThemes() error {
	for _, name := range theme.List() {
		fmt.Println(name)
	}
	return nil
}

// sourceStream is one opened input's own ordered block feed, already
// restored to block-sequence order by a per-source SequentialReorder.
// Carrying whole pipeline.Result blocks — not flattened records — is
// what lets a downstream consumer (the chronological merger, the
// --dump-index encoder) see a block's Index before committing to its
// records (spec.md §4.H, §5).
type sourceStream struct {
	inputID int
	name    string
	blocks  <-chan pipeline.Result
}

// runSource splits src into blocks, fans them out across a worker pool,
// and restores per-source order before handing blocks to the caller.
func runSource(src *source.Source, opts pipeline.WorkerOptions, concurrency, bufferSize int, interrupts *sink.InterruptHandler) sourceStream {
	out := make(chan pipeline.Result, concurrency*2)

	go func() {
		defer close(out)

		blocks := make(chan block.Block, concurrency*2)
		results := make(chan pipeline.Result, concurrency*2)

		var wg sync.WaitGroup
		for i := 0; i < concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for blk := range blocks {
					localOpts := opts
					localOpts.InputName = src.Name
					results <- pipeline.ProcessBlock(blk, localOpts)
				}
			}()
		}
		go func() {
			wg.Wait()
			close(results)
		}()

		go splitIntoBlocks(src, opts.DelimMode, bufferSize, blocks, interrupts)

		var sidecar blockindex.Sidecar
		reorder := pipeline.NewSequentialReorder()
		for res := range results {
			if interrupts.Stopped() {
				continue
			}
			reorder.Push(res)
			reorder.Drain(func(r pipeline.Result) {
				if r.Index != nil {
					sidecar.Sequence = append(sidecar.Sequence, r.BlockSeq)
					sidecar.Indexes = append(sidecar.Indexes, *r.Index)
				}
				out <- r
			})
		}
		persistSidecar(src, sidecar)
	}()

	return sourceStream{inputID: src.InputID, name: src.Name, blocks: out}
}

// tailLimit rewrites in into a channel that only replays the last n
// records observed before in closed (--tail N, spec.md §6's Mode
// flags), wrapped back up as a single synthetic block with no Index —
// the window has already flattened any per-block time/level bounds, so
// there is nothing left for a downstream CanBlockContain check to do
// with it. A bounded ring buffer absorbs the whole stream before
// replaying, so in follow mode the window only surfaces once the run
// ends rather than continuously re-trimming a live tail.
func tailLimit(in <-chan pipeline.Result, n int) <-chan pipeline.Result {
	out := make(chan pipeline.Result, 1)
	go func() {
		defer close(out)
		ring := make([]pipeline.FormattedRecord, 0, n)
		for res := range in {
			for _, fr := range res.Records {
				if len(ring) < n {
					ring = append(ring, fr)
					continue
				}
				copy(ring, ring[1:])
				ring[n-1] = fr
			}
		}
		out <- pipeline.Result{Records: ring}
	}()
	return out
}

// persistSidecar writes sc's accumulated block indexes alongside src's
// file, when src corresponds to a real, seekable file (never stdin or
// an archive member, neither of which has a stable path to key on).
func persistSidecar(src *source.Source, sc blockindex.Sidecar) {
	if src.Name == "" || src.Name == "-" || len(sc.Indexes) == 0 {
		return
	}
	info, err := os.Stat(src.Name)
	if err != nil {
		return
	}
	sc.Size = info.Size()
	sc.ModTime = info.ModTime()
	sc.Hash = blockindex.ContentHash(src.Name, sc.Size, sc.ModTime)
	if existing, ok := blockindex.Load(src.Name, sc.Size, sc.ModTime); ok && existing.Hash == sc.Hash {
		return
	}
	if err := blockindex.Save(src.Name, sc); err != nil {
		log.Printf("[WARN] failed to persist block index for %s: %v", src.Name, err)
	}
}

// followPollInterval is how often a followed source is re-read after
// hitting EOF (spec.md §4.A: "periodic poll is the default" refresh
// strategy, no fsnotify dependency in the teacher's stack).
const followPollInterval = 200 * time.Millisecond

func splitIntoBlocks(src *source.Source, mode block.Mode, bufferSize int, out chan<- block.Block, interrupts *sink.InterruptHandler) {
	defer close(out)
	defer src.Close()
	splitter := &block.Splitter{Mode: mode}
	seq := uint64(0)
	carry := make([]byte, 0, bufferSize)

	var ticker *time.Ticker
	if followFlag {
		ticker = time.NewTicker(followPollInterval)
		defer ticker.Stop()
	}

	for {
		if interrupts.Stopped() {
			return
		}
		chunk := make([]byte, bufferSize)
		n, eof, err := src.Read(chunk)
		if err != nil {
			log.Printf("[WARN] reading %s: %v", src.Name, err)
			return
		}
		carry = append(carry, chunk[:n]...)

		for {
			cutLen := splitter.Cut(carry, eof && n == 0)
			if cutLen == 0 {
				break
			}
			blkBytes := make([]byte, cutLen)
			copy(blkBytes, carry[:cutLen])
			out <- block.Block{Bytes: blkBytes, Seq: seq, InputID: src.InputID}
			seq++
			carry = carry[cutLen:]
		}

		if eof && n == 0 {
			if ticker == nil {
				if len(carry) > 0 {
					out <- block.Block{Bytes: carry, Seq: seq, InputID: src.InputID}
				}
				return
			}
			if src.Refresh != nil {
				if err := src.Refresh(); err != nil {
					log.Printf("[WARN] following %s: %v", src.Name, err)
					if len(carry) > 0 {
						out <- block.Block{Bytes: carry, Seq: seq, InputID: src.InputID}
					}
					return
				}
			}
			<-ticker.C
		}
	}
}

func emitSequential(streams []sourceStream, w *sink.Sink) {
	for _, st := range streams {
		for res := range st.blocks {
			for _, fr := range res.Records {
				w.Write(format.Slice(fr.Buf, fr.Range))
			}
		}
	}
}

// emitChronological drives the k-way merge across every source's block
// feed. q is threaded into pipeline.NewChronoMerger so the merger can
// apply query.CanBlockContain against a block's Index before any of its
// records become heap candidates, independent of the skip ProcessBlock
// already applied on the worker side.
func emitChronological(streams []sourceStream, q *query.Query, w *sink.Sink) {
	sources := make([]pipeline.StreamSource, 0, len(streams))

	for _, st := range streams {
		st := st
		sources = append(sources, pipeline.StreamSource{
			InputID: st.inputID,
			Next: func() (pipeline.Result, bool) {
				res, ok := <-st.blocks
				return res, ok
			},
		})
	}

	merger := pipeline.NewChronoMerger(sources, q)
	window := time.Duration(syncIntervalMs) * time.Millisecond
	buffer := pipeline.NewSyncWindowBuffer(window)

	for {
		fr, ok := merger.Next()
		if !ok {
			break
		}
		buffer.Observe(fr)
		buffer.Drain(func(r pipeline.FormattedRecord) {
			w.Write(format.Slice(r.Buf, r.Range))
		})
	}
	buffer.Flush(func(r pipeline.FormattedRecord) {
		w.Write(format.Slice(r.Buf, r.Range))
	})
}

func dumpIndexes(streams []sourceStream, out *os.File) {
	enc := json.NewEncoder(out)
	for _, st := range streams {
		for res := range st.blocks {
			if res.Index != nil {
				enc.Encode(res.Index)
			}
		}
	}
}
