package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/johns/lascheck/internal/audit"
	"github.com/johns/lascheck/internal/config"
	"github.com/johns/lascheck/internal/consistency"
	"github.com/johns/lascheck/internal/discover"
	"github.com/johns/lascheck/internal/index"
	"github.com/johns/lascheck/internal/render"
	"github.com/johns/lascheck/internal/watch"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	switch os.Args[1] {
	case "check":
		os.Exit(runBatch(cfg, os.Args[2:], false))

	case "repair":
		os.Exit(runBatch(cfg, os.Args[2:], true))

	case "info":
		runInfo(cfg, os.Args[2:])

	case "history":
		if len(os.Args) < 3 {
			fatal("usage: lascheck history <file>")
		}
		runHistory(cfg, os.Args[2])

	case "recent":
		runRecent(cfg, os.Args[2:])

	case "watch":
		if len(os.Args) < 3 {
			fatal("usage: lascheck watch <dir>")
		}
		runWatch(cfg, os.Args[2])

	case "init":
		path, err := config.WriteDefault()
		if err != nil {
			fatal("init: %v", err)
		}
		fmt.Printf("config: %s\n", config.CompressHome(path))

	case "version":
		fmt.Printf("lascheck v%s\n", version)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// runBatch checks (and optionally repairs) every file the arguments
// expand to. A structural failure skips that file and the batch
// continues. Exit code: 2 on any structural failure, 1 if discrepancies
// remain, 0 when everything is clean.
func runBatch(cfg config.Config, args []string, doRepair bool) int {
	opts := auditOptions(cfg, args, doRepair)
	jsonOut := hasFlag(args, "--json")
	noIndex := hasFlag(args, "--no-index")

	paths := positional(args)
	if len(paths) == 0 {
		fatal("usage: lascheck %s [flags] <file|dir>...", map[bool]string{false: "check", true: "repair"}[doRepair])
	}

	files, err := discover.Expand(paths)
	if err != nil {
		fatal("%v", err)
	}
	if len(files) == 0 {
		fatal("no .las inputs found")
	}

	var idx *index.DB
	if !noIndex {
		if idx, err = index.Open(cfg.Index.Path); err != nil {
			warn("index unavailable: %v", err)
		} else {
			defer idx.Close()
		}
	}

	code := 0
	for _, f := range files {
		out, err := audit.Run(f.Path, opts)
		if err != nil {
			warn("%s: %v (skipping)", f.Path, err)
			code = 2
			continue
		}

		printOutcome(cfg, out, jsonOut, doRepair)
		remaining := len(out.Discrepancies)
		if out.Repair != nil {
			remaining = len(out.PostRepair)
		}
		if remaining > 0 && code == 0 {
			code = 1
		}

		if idx != nil {
			recordRun(idx, out)
		}
	}
	return code
}

func printOutcome(cfg config.Config, out *audit.Outcome, jsonOut, didRepair bool) {
	if jsonOut {
		fr := render.NewFileReport(out.Path, out.Header, out.VLRs, out.Summary, out.Discrepancies, out.Repair)
		s, err := fr.JSON()
		if err != nil {
			warn("%s: %v", out.Path, err)
			return
		}
		fmt.Print(s)
		return
	}

	if !cfg.Report.SuppressWarnings {
		if w := render.Warnings(out.Discrepancies); w != "" {
			fmt.Printf("%s:\n%s", out.Path, w)
		} else {
			fmt.Printf("%s: clean\n", out.Path)
		}
	}

	if out.Repair != nil {
		// Repairs go to stderr at verbose level: a successful repair is
		// not itself a problem.
		if cfg.Report.Verbose {
			fmt.Fprint(os.Stderr, render.RepairReport(*out.Repair))
		}
		for _, d := range out.PostRepair {
			warn("%s: still inconsistent after repair: %s", out.Path, d)
		}
	}
}

func recordRun(idx *index.DB, out *audit.Outcome) {
	repaired := ""
	if out.Repair != nil {
		for i, f := range out.Repair.Patched {
			if i > 0 {
				repaired += ","
			}
			repaired += f
		}
	}
	err := idx.Record(index.Entry{
		Path:          out.Path,
		CheckedAt:     time.Now(),
		Version:       out.Header.Version(),
		PointFormat:   int(out.Header.PointFormat),
		PointCount:    out.Summary.N,
		Discrepancies: len(out.Discrepancies),
		Repaired:      repaired,
	})
	if err != nil {
		warn("index: %v", err)
	}
}

func runInfo(cfg config.Config, args []string) {
	paths := positional(args)
	if len(paths) != 1 {
		fatal("usage: lascheck info [--json] <file>")
	}

	opts := auditOptions(cfg, args, false)
	out, err := audit.Run(paths[0], opts)
	if err != nil {
		fatal("%v", err)
	}

	if hasFlag(args, "--json") {
		fr := render.NewFileReport(out.Path, out.Header, out.VLRs, out.Summary, out.Discrepancies, nil)
		s, err := fr.JSON()
		if err != nil {
			fatal("%v", err)
		}
		fmt.Print(s)
		return
	}

	fmt.Print(render.Header(out.Header))
	if v := render.VLRs(out.VLRs); v != "" {
		fmt.Print(v)
	}
	fmt.Print(render.Summary(out.Summary, out.Attrs))
	if !cfg.Report.SuppressWarnings {
		fmt.Print(render.Warnings(out.Discrepancies))
	}
}

func runHistory(cfg config.Config, path string) {
	idx, err := index.Open(cfg.Index.Path)
	if err != nil {
		fatal("open index: %v", err)
	}
	defer idx.Close()

	entries, err := idx.History(path)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Print(index.Format(entries))
}

func runRecent(cfg config.Config, args []string) {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fatal("usage: lascheck recent [n]")
		}
		limit = n
	}

	idx, err := index.Open(cfg.Index.Path)
	if err != nil {
		fatal("open index: %v", err)
	}
	defer idx.Close()

	entries, err := idx.Recent(limit)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Print(index.Format(entries))
}

func runWatch(cfg config.Config, dir string) {
	settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
	opts := audit.Options{Checks: checkOptions(cfg)}

	fmt.Printf("watching %s\n", dir)
	err := watch.Run(dir, settle, func(path string) {
		out, err := audit.Run(path, opts)
		if err != nil {
			warn("%s: %v", path, err)
			return
		}
		printOutcome(cfg, out, false, false)
	})
	if err != nil {
		fatal("%v", err)
	}
}

func auditOptions(cfg config.Config, args []string, doRepair bool) audit.Options {
	opts := audit.Options{
		Checks: checkOptions(cfg),
		Repair: doRepair,
	}
	if v := flagValue(args, "--start"); v != "" {
		opts.Start = parseUint(v, "--start")
	}
	if v := flagValue(args, "--count"); v != "" {
		opts.Count = parseUint(v, "--count")
	}
	if cfg.Report.Verbose || hasFlag(args, "--verbose") {
		opts.OOBLog = os.Stderr
	}
	return opts
}

func checkOptions(cfg config.Config) consistency.Options {
	return consistency.Options{
		Counts:     cfg.Checks.Counts,
		Bounds:     cfg.Checks.Bounds,
		Resolution: cfg.Checks.Resolution,
		Fluff:      cfg.Checks.Fluff,
		GPSTime:    cfg.Checks.GPSTime,
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `lascheck v%s — LAS header validation and repair

Usage:
  lascheck check [flags] <file|dir>...   Validate headers against point data
  lascheck repair [flags] <file|dir>...  Validate, then patch repairable fields
  lascheck info [--json] <file>          Show header and point statistics
  lascheck history <file>                Show recorded runs for a file
  lascheck recent [n]                    Show most recent runs
  lascheck watch <dir>                   Check files as they land in a directory
  lascheck init                          Write default config
  lascheck version                       Print version
  lascheck help                          Show this help

Flags:
  --json           Structured output instead of text
  --verbose        Log each out-of-bounds point
  --start <n>      First record index to read
  --count <n>      Maximum records to read
  --no-index       Skip recording the run

Configuration: ~/.config/lascheck/config.toml
`, version)
}

func positional(args []string) []string {
	var out []string
	skip := false
	for _, a := range args {
		if skip {
			skip = false
			continue
		}
		switch a {
		case "--start", "--count":
			skip = true
		case "--json", "--verbose", "--no-index":
		default:
			out = append(out, a)
		}
	}
	return out
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func parseUint(s, flag string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		fatal("invalid %s value %q", flag, s)
	}
	return v
}

func warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "lascheck: "+format+"\n", args...)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "lascheck: "+format+"\n", args...)
	os.Exit(1)
}
