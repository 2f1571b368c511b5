// Package repair turns repairable discrepancies into minimal binary
// patches and applies them in place. Planning is pure: patches are data
// that can be inspected and tested before any byte is written.
package repair

import (
	"fmt"
	"math"
	"os"

	"github.com/johns/lascheck/internal/consistency"
	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/summary"
)

// Skip records one field family that could not be repaired and why.
type Skip struct {
	Field  string
	Reason string
}

// Report lists what a repair pass patched and what it skipped. Skips are
// outcomes, not errors.
type Report struct {
	Patched []string
	Skipped []Skip
}

func (r *Report) patched(field string) {
	r.Patched = append(r.Patched, field)
}

func (r *Report) skipped(field, reason string) {
	r.Skipped = append(r.Skipped, Skip{Field: field, Reason: reason})
}

const reasonNoAutoRepair = "no automatic repair"

// Plan derives the patch list for the repairable discrepancies. Families
// appearing several times (per-axis, per-slot) collapse into one
// contiguous patch. The header is read, never mutated.
func Plan(h *lasfmt.Header, res *summary.Result, ds []consistency.Discrepancy) ([]lasfmt.Patch, Report) {
	var (
		patches []lasfmt.Patch
		report  Report
		done    = map[consistency.Family]bool{}
	)

	for _, d := range ds {
		if done[d.Family] {
			continue
		}
		done[d.Family] = true

		if !d.Repairable {
			report.skipped(d.Family.String(), reasonNoAutoRepair)
			continue
		}

		switch d.Family {
		case consistency.PointCount:
			patches = append(patches, planPointCount(h, res, &report)...)
		case consistency.ByReturn:
			patches = append(patches, planByReturn(h, res, &report)...)
		case consistency.ExtendedCount:
			patches = append(patches, lasfmt.PointCountExtendedPatch(res.N))
			report.patched("extended point count")
		case consistency.ExtendedByReturn:
			patches = append(patches, planExtendedByReturn(res, &report))
		case consistency.BoundingBox:
			patches = append(patches, planBoundingBox(h, res, &report))
		default:
			report.skipped(d.Family.String(), reasonNoAutoRepair)
		}
	}

	return patches, report
}

func planPointCount(h *lasfmt.Header, res *summary.Result, report *Report) []lasfmt.Patch {
	if h.IsExtendedFormat() {
		// Stale legacy counter on a format that forbids it: zero it.
		report.patched("point count (legacy zeroed)")
		return []lasfmt.Patch{lasfmt.PointCountLegacyPatch(0)}
	}

	if res.N <= math.MaxUint32 {
		report.patched("point count")
		return []lasfmt.Patch{lasfmt.PointCountLegacyPatch(uint32(res.N))}
	}

	if !h.HasExtendedCounters() {
		// Never wrap or truncate: a pre-1.4 header simply cannot hold
		// this count, so the field stays byte-for-byte untouched.
		report.skipped("point count", fmt.Sprintf(
			"true count %d too large for 32-bit field in version %s", res.N, h.Version()))
		return nil
	}

	report.patched("point count (legacy zeroed, extended updated)")
	return []lasfmt.Patch{
		lasfmt.PointCountLegacyPatch(0),
		lasfmt.PointCountExtendedPatch(res.N),
	}
}

func planByReturn(h *lasfmt.Header, res *summary.Result, report *Report) []lasfmt.Patch {
	var slots [5]uint32

	if h.IsExtendedFormat() {
		report.patched("by-return counts (legacy zeroed)")
		return []lasfmt.Patch{lasfmt.ByReturnLegacyPatch(slots)}
	}

	derived := res.ByReturnSlice(5)
	for i, v := range derived {
		if v > math.MaxUint32 {
			if !h.HasExtendedCounters() {
				report.skipped("by-return counts", fmt.Sprintf(
					"return %d count %d too large for 32-bit field in version %s", i+1, v, h.Version()))
				return nil
			}
			slots[i] = 0
			continue
		}
		slots[i] = uint32(v)
	}

	report.patched("by-return counts")
	return []lasfmt.Patch{lasfmt.ByReturnLegacyPatch(slots)}
}

func planExtendedByReturn(res *summary.Result, report *Report) lasfmt.Patch {
	var slots [15]uint64
	copy(slots[:], res.ByReturnSlice(15))
	report.patched("extended by-return counts")
	return lasfmt.ByReturnExtendedPatch(slots)
}

func planBoundingBox(h *lasfmt.Header, res *summary.Result, report *Report) lasfmt.Patch {
	maxX, minX, maxY, minY, maxZ, minZ := consistency.DerivedBounds(h, res)
	report.patched("bounding box")
	return lasfmt.BoundingBoxPatch(maxX, minX, maxY, minY, maxZ, minZ)
}

// Apply writes the patches to the file at path. The caller must have
// closed every read handle first; the format's writer forbids concurrent
// handles on one file. Writes are not atomic as a group: a crash can
// leave a partially repaired header.
func Apply(path string, patches []lasfmt.Patch) error {
	if len(patches) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open for repair: %w", err)
	}
	defer f.Close()

	for _, p := range patches {
		if _, err := f.WriteAt(p.Bytes, p.Offset); err != nil {
			return fmt.Errorf("patch at offset %d: %w", p.Offset, err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close after repair: %w", err)
	}
	return nil
}
