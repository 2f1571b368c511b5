// Package audit runs the full pass over one file: decode the header,
// stream the points through the accumulator, check consistency, and
// optionally repair. It owns the single-handle discipline: the read
// handle is fully closed before any repair write opens the file again.
package audit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/johns/lascheck/internal/consistency"
	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/lasio"
	"github.com/johns/lascheck/internal/repair"
	"github.com/johns/lascheck/internal/summary"
)

// Options configures one run.
type Options struct {
	Checks consistency.Options

	// Start and Count restrict the pass to a record sub-range. Count 0
	// means "until end of stream".
	Start uint64
	Count uint64

	// Repair applies patches for repairable discrepancies after the
	// read pass closes.
	Repair bool

	// OOBLog, when non-nil, receives one line per out-of-bounds point.
	OOBLog io.Writer
}

// Outcome carries everything one pass produced, for rendering and
// indexing. Repair and PostRepair are nil unless a repair ran.
type Outcome struct {
	Path   string
	Header *lasfmt.Header
	VLRs   []lasio.VLR
	Attrs  []lasio.ExtraAttribute

	Summary       *summary.Result
	Discrepancies []consistency.Discrepancy

	Repair *repair.Report

	// PostRepair holds the discrepancies still present after patching,
	// from a fresh decode of the repaired header. Empty on success.
	PostRepair []consistency.Discrepancy
}

// Run performs the pass. Structural failures (unreadable header, decoder
// errors) abort this file; discrepancies never do.
func Run(path string, opts Options) (*Outcome, error) {
	r, err := lasio.Open(path)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Path:   path,
		Header: r.Header,
		VLRs:   r.VLRs,
		Attrs:  r.Attrs,
	}

	acc := summary.New()
	bounds := consistency.NewBoundsWatcher(r.Header)
	bounds.Log = opts.OOBLog

	res, err := stream(r, acc, bounds, opts)
	closeErr := r.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close %s: %w", path, closeErr)
	}
	out.Summary = res

	out.Discrepancies = consistency.Check(out.Header, res, opts.Checks)
	if d, ok := bounds.Discrepancy(); ok {
		out.Discrepancies = append(out.Discrepancies, d)
	}

	if opts.Repair && len(out.Discrepancies) > 0 {
		if strings.HasSuffix(path, ".zst") {
			return nil, fmt.Errorf("%s: cannot repair a compressed input in place", path)
		}
		if err := applyRepair(out, opts); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func stream(r *lasio.Reader, acc *summary.Accumulator, bounds *consistency.BoundsWatcher, opts Options) (*summary.Result, error) {
	if opts.Start > 0 {
		if err := r.Seek(opts.Start); err != nil {
			return nil, err
		}
	}

	var n uint64
	for opts.Count == 0 || n < opts.Count {
		idx := r.Index()
		p, err := r.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		acc.Add(p)
		bounds.Observe(p, idx)
		n++
	}

	return acc.Finalize(), nil
}

func applyRepair(out *Outcome, opts Options) error {
	patches, report := repair.Plan(out.Header, out.Summary, out.Discrepancies)
	out.Repair = &report

	if err := repair.Apply(out.Path, patches); err != nil {
		return err
	}
	if len(patches) == 0 {
		// Nothing was patchable, so everything found is still present.
		out.PostRepair = out.Discrepancies
		return nil
	}

	// Re-derive a fresh header from the patched bytes to confirm the
	// repair converged.
	h, err := reloadHeader(out.Path)
	if err != nil {
		return fmt.Errorf("reload after repair: %w", err)
	}
	out.Header = h
	out.PostRepair = consistency.Check(h, out.Summary, opts.Checks)
	return nil
}

func reloadHeader(path string) (*lasfmt.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw := make([]byte, lasfmt.HeaderSize14)
	n, err := io.ReadFull(f, raw)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return lasfmt.Decode(raw[:n])
}
