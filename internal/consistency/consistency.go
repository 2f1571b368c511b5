// Package consistency compares a decoded header against the statistics
// derived from the point stream and reports every disagreement as data.
// Discrepancies are never errors: the checker always completes and
// returns the full list.
package consistency

import (
	"fmt"
	"math"

	"github.com/johns/lascheck/internal/gpstime"
	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/resolution"
	"github.com/johns/lascheck/internal/summary"
)

// Family identifies which header field family a discrepancy concerns.
type Family int

const (
	PointCount Family = iota
	ByReturn
	ExtendedCount
	ExtendedByReturn
	BoundingBox
	Resolution
	ZeroReturn
	Fluff
	GPSTimeEncoding
)

func (f Family) String() string {
	switch f {
	case PointCount:
		return "point count"
	case ByReturn:
		return "by-return counts"
	case ExtendedCount:
		return "extended point count"
	case ExtendedByReturn:
		return "extended by-return counts"
	case BoundingBox:
		return "bounding box"
	case Resolution:
		return "resolution"
	case ZeroReturn:
		return "zero return number"
	case Fluff:
		return "fluff"
	case GPSTimeEncoding:
		return "gps time encoding"
	default:
		return "unknown"
	}
}

// Discrepancy is one detected mismatch between declared and derived
// values. Repairable marks whether the repair engine has a defined fix.
type Discrepancy struct {
	Family     Family
	Detail     string // axis, slot, or bound the mismatch concerns
	Declared   string
	Derived    string
	Repairable bool
}

func (d Discrepancy) String() string {
	if d.Detail != "" {
		return fmt.Sprintf("%s (%s): declared %s, derived %s", d.Family, d.Detail, d.Declared, d.Derived)
	}
	return fmt.Sprintf("%s: declared %s, derived %s", d.Family, d.Declared, d.Derived)
}

// Options selects which rule groups run. The zero value runs nothing;
// use DefaultOptions for a full check.
type Options struct {
	Counts     bool
	Bounds     bool
	Resolution bool
	Fluff      bool
	GPSTime    bool
}

// DefaultOptions enables every check.
func DefaultOptions() Options {
	return Options{Counts: true, Bounds: true, Resolution: true, Fluff: true, GPSTime: true}
}

// Check evaluates every enabled rule independently and returns all
// discrepancies found. Running it twice on the same inputs yields the
// same list.
func Check(h *lasfmt.Header, res *summary.Result, opts Options) []Discrepancy {
	var ds []Discrepancy

	if opts.Counts {
		ds = append(ds, checkCounts(h, res)...)
		ds = append(ds, checkZeroReturn(res)...)
	}
	if opts.Bounds && !res.Empty() {
		ds = append(ds, checkBounds(h, res)...)
	}
	if opts.Resolution {
		ds = append(ds, checkResolution(h)...)
	}
	if opts.Fluff && !res.Empty() {
		ds = append(ds, checkFluff(h, res)...)
	}
	if opts.GPSTime {
		ds = append(ds, checkGPSTime(h, res)...)
	}

	return ds
}

func checkCounts(h *lasfmt.Header, res *summary.Result) []Discrepancy {
	var ds []Discrepancy
	derived := res.ByReturnSlice(15)

	if h.IsExtendedFormat() {
		// Formats 6-10 forbid the legacy counters; any nonzero value is
		// stale regardless of what the stream contains.
		if h.PointCountLegacy != 0 {
			ds = append(ds, Discrepancy{
				Family:     PointCount,
				Declared:   fmt.Sprintf("%d", h.PointCountLegacy),
				Derived:    "0 (legacy counter unused by this point format)",
				Repairable: true,
			})
		}
		for i, c := range h.ByReturnLegacy {
			if c != 0 {
				ds = append(ds, Discrepancy{
					Family:     ByReturn,
					Detail:     fmt.Sprintf("return %d", i+1),
					Declared:   fmt.Sprintf("%d", c),
					Derived:    "0 (legacy counter unused by this point format)",
					Repairable: true,
				})
			}
		}
	} else {
		ds = append(ds, checkLegacyCount(h, res.N)...)
		for i, c := range h.ByReturnLegacy {
			ds = append(ds, checkLegacySlot(h, fmt.Sprintf("return %d", i+1), ByReturn, c, derived[i])...)
		}
	}

	if h.HasExtendedCounters() {
		if h.PointCountExtended != res.N {
			ds = append(ds, Discrepancy{
				Family:     ExtendedCount,
				Declared:   fmt.Sprintf("%d", h.PointCountExtended),
				Derived:    fmt.Sprintf("%d", res.N),
				Repairable: true,
			})
		}
		for i, c := range h.ByReturnExtended {
			if c != derived[i] {
				ds = append(ds, Discrepancy{
					Family:     ExtendedByReturn,
					Detail:     fmt.Sprintf("return %d", i+1),
					Declared:   fmt.Sprintf("%d", c),
					Derived:    fmt.Sprintf("%d", derived[i]),
					Repairable: true,
				})
			}
		}
	}

	return ds
}

func checkLegacyCount(h *lasfmt.Header, derived uint64) []Discrepancy {
	if derived > math.MaxUint32 {
		// The 32-bit field cannot represent the truth. A correct 1.4
		// header shows the sentinel 0 and defers to the extended count.
		if h.PointCountLegacy == 0 && h.HasExtendedCounters() {
			return nil
		}
		return []Discrepancy{{
			Family:     PointCount,
			Declared:   fmt.Sprintf("%d", h.PointCountLegacy),
			Derived:    fmt.Sprintf("%d (exceeds 32-bit field)", derived),
			Repairable: true,
		}}
	}
	if uint64(h.PointCountLegacy) != derived {
		return []Discrepancy{{
			Family:     PointCount,
			Declared:   fmt.Sprintf("%d", h.PointCountLegacy),
			Derived:    fmt.Sprintf("%d", derived),
			Repairable: true,
		}}
	}
	return nil
}

func checkLegacySlot(h *lasfmt.Header, detail string, fam Family, declared uint32, derived uint64) []Discrepancy {
	if derived > math.MaxUint32 {
		if declared == 0 && h.HasExtendedCounters() {
			return nil
		}
		return []Discrepancy{{
			Family:     fam,
			Detail:     detail,
			Declared:   fmt.Sprintf("%d", declared),
			Derived:    fmt.Sprintf("%d (exceeds 32-bit field)", derived),
			Repairable: true,
		}}
	}
	if uint64(declared) != derived {
		return []Discrepancy{{
			Family:     fam,
			Detail:     detail,
			Declared:   fmt.Sprintf("%d", declared),
			Derived:    fmt.Sprintf("%d", derived),
			Repairable: true,
		}}
	}
	return nil
}

// DerivedBounds returns the true bounding box implied by the summary's
// integer extrema under the header's own scale/offset.
func DerivedBounds(h *lasfmt.Header, res *summary.Result) (maxX, minX, maxY, minY, maxZ, minZ float64) {
	maxX = h.OffX + h.ScaleX*float64(res.X.Max)
	minX = h.OffX + h.ScaleX*float64(res.X.Min)
	maxY = h.OffY + h.ScaleY*float64(res.Y.Max)
	minY = h.OffY + h.ScaleY*float64(res.Y.Min)
	maxZ = h.OffZ + h.ScaleZ*float64(res.Z.Max)
	minZ = h.OffZ + h.ScaleZ*float64(res.Z.Min)
	return
}

func checkBounds(h *lasfmt.Header, res *summary.Result) []Discrepancy {
	maxX, minX, maxY, minY, maxZ, minZ := DerivedBounds(h, res)

	pairs := []struct {
		detail             string
		declared, derived  float64
	}{
		{"max x", h.MaxX, maxX},
		{"min x", h.MinX, minX},
		{"max y", h.MaxY, maxY},
		{"min y", h.MinY, minY},
		{"max z", h.MaxZ, maxZ},
		{"min z", h.MinZ, minZ},
	}

	var ds []Discrepancy
	for _, p := range pairs {
		if p.declared != p.derived {
			ds = append(ds, Discrepancy{
				Family:     BoundingBox,
				Detail:     p.detail,
				Declared:   fmt.Sprintf("%g", p.declared),
				Derived:    fmt.Sprintf("%g", p.derived),
				Repairable: true,
			})
		}
	}
	return ds
}

func checkResolution(h *lasfmt.Header) []Discrepancy {
	scalars := []struct {
		detail        string
		value         float64
		offset, scale float64
	}{
		{"max x", h.MaxX, h.OffX, h.ScaleX},
		{"min x", h.MinX, h.OffX, h.ScaleX},
		{"max y", h.MaxY, h.OffY, h.ScaleY},
		{"min y", h.MinY, h.OffY, h.ScaleY},
		{"max z", h.MaxZ, h.OffZ, h.ScaleZ},
		{"min z", h.MinZ, h.OffZ, h.ScaleZ},
	}

	var ds []Discrepancy
	for _, s := range scalars {
		if !resolution.IsRepresentable(s.value, s.offset, s.scale) {
			ds = append(ds, Discrepancy{
				Family:   Resolution,
				Detail:   s.detail,
				Declared: fmt.Sprintf("%g", s.value),
				Derived:  fmt.Sprintf("not representable with offset %g scale %g", s.offset, s.scale),
			})
		}
	}
	return ds
}

func checkZeroReturn(res *summary.Result) []Discrepancy {
	if res.ZeroReturn == 0 {
		return nil
	}
	return []Discrepancy{{
		Family:   ZeroReturn,
		Declared: "return numbers start at 1",
		Derived:  fmt.Sprintf("%d points with return number 0", res.ZeroReturn),
	}}
}

func checkFluff(h *lasfmt.Header, res *summary.Result) []Discrepancy {
	axes := []struct {
		detail   string
		severity resolution.Severity
		scale    float64
	}{
		{"x", res.FluffX, h.ScaleX},
		{"y", res.FluffY, h.ScaleY},
		{"z", res.FluffZ, h.ScaleZ},
	}

	var ds []Discrepancy
	for _, a := range axes {
		if a.severity == resolution.None {
			continue
		}
		ds = append(ds, Discrepancy{
			Family:   Fluff,
			Detail:   a.detail,
			Declared: fmt.Sprintf("scale %g", a.scale),
			Derived:  fmt.Sprintf("all values %s coarser than scale implies", a.severity),
		})
	}
	return ds
}

// checkGPSTime flags GPS time values that look week-encoded while the
// header's global encoding bit claims adjusted standard time, and vice
// versa. Informational only.
func checkGPSTime(h *lasfmt.Header, res *summary.Result) []Discrepancy {
	if !res.GPSTime.Set {
		return nil
	}
	weekLike := gpstime.LooksLikeWeekSeconds(res.GPSTime.Min) && gpstime.LooksLikeWeekSeconds(res.GPSTime.Max)

	switch {
	case h.GPSTimeIsStandard() && weekLike:
		return []Discrepancy{{
			Family:   GPSTimeEncoding,
			Declared: "adjusted standard GPS time (global encoding bit 0 set)",
			Derived:  fmt.Sprintf("times %g..%g fit GPS week seconds", res.GPSTime.Min, res.GPSTime.Max),
		}}
	case !h.GPSTimeIsStandard() && !weekLike:
		return []Discrepancy{{
			Family:   GPSTimeEncoding,
			Declared: "GPS week seconds (global encoding bit 0 clear)",
			Derived:  fmt.Sprintf("times %g..%g exceed one week", res.GPSTime.Min, res.GPSTime.Max),
		}}
	}
	return nil
}
