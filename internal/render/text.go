// Package render turns decoded headers, summary results, and discrepancy
// lists into human-readable and JSON output. Facts are computed once by
// the producing packages; this package only formats them.
package render

import (
	"fmt"
	"strings"

	"github.com/johns/lascheck/internal/consistency"
	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/lasio"
	"github.com/johns/lascheck/internal/repair"
	"github.com/johns/lascheck/internal/summary"
)

// Header renders the public header block as aligned terminal output.
func Header(h *lasfmt.Header) string {
	var b strings.Builder
	b.WriteString("Header\n")
	fmt.Fprintf(&b, "  %-24s %s\n", "version", h.Version())
	fmt.Fprintf(&b, "  %-24s %d\n", "file source id", h.FileSourceID)
	fmt.Fprintf(&b, "  %-24s 0x%04x\n", "global encoding", h.GlobalEncoding)
	fmt.Fprintf(&b, "  %-24s %s\n", "project guid", h.GUID())
	fmt.Fprintf(&b, "  %-24s %q\n", "system id", h.SystemID)
	fmt.Fprintf(&b, "  %-24s %q\n", "software", h.Software)
	fmt.Fprintf(&b, "  %-24s day %d, %d\n", "created", h.CreationDay, h.CreationYear)
	fmt.Fprintf(&b, "  %-24s %d\n", "header size", h.HeaderSize)
	fmt.Fprintf(&b, "  %-24s %d\n", "offset to points", h.OffsetToPoints)
	fmt.Fprintf(&b, "  %-24s %d\n", "vlr count", h.VLRCount)
	fmt.Fprintf(&b, "  %-24s %d (record length %d)\n", "point format", h.PointFormat, h.RecordLength)
	fmt.Fprintf(&b, "  %-24s %d\n", "point count (legacy)", h.PointCountLegacy)
	fmt.Fprintf(&b, "  %-24s %v\n", "by return (legacy)", h.ByReturnLegacy)
	fmt.Fprintf(&b, "  %-24s %g %g %g\n", "scale", h.ScaleX, h.ScaleY, h.ScaleZ)
	fmt.Fprintf(&b, "  %-24s %g %g %g\n", "offset", h.OffX, h.OffY, h.OffZ)
	fmt.Fprintf(&b, "  %-24s %g..%g  %g..%g  %g..%g\n", "bounding box",
		h.MinX, h.MaxX, h.MinY, h.MaxY, h.MinZ, h.MaxZ)
	if h.HasExtendedCounters() {
		fmt.Fprintf(&b, "  %-24s %d\n", "point count (extended)", h.PointCountExtended)
		fmt.Fprintf(&b, "  %-24s %v\n", "by return (extended)", h.ByReturnExtended)
	}
	return b.String()
}

// VLRs renders the variable-length record directory.
func VLRs(vlrs []lasio.VLR) string {
	if len(vlrs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("VLRs\n")
	for i, v := range vlrs {
		fmt.Fprintf(&b, "  %d  %s/%d  %d bytes  %s\n", i, v.UserID, v.RecordID, v.Length, v.Description)
	}
	return b.String()
}

// Summary renders the accumulated point statistics. attrs names the
// extra-bytes attributes, matching the result's Extra slots by index.
func Summary(res *summary.Result, attrs []lasio.ExtraAttribute) string {
	if res.Empty() {
		return "Points\n  no points\n"
	}

	var b strings.Builder
	b.WriteString("Points\n")
	fmt.Fprintf(&b, "  %-24s %d\n", "count", res.N)
	fmt.Fprintf(&b, "  %-24s %d..%d  %d..%d  %d..%d\n", "raw extent",
		res.X.Min, res.X.Max, res.Y.Min, res.Y.Max, res.Z.Min, res.Z.Max)
	writeIntRange(&b, "intensity", res.Intensity)
	writeIntRange(&b, "return number", res.ReturnNum)
	writeIntRange(&b, "returns per pulse", res.NumReturns)
	writeIntRange(&b, "classification", res.Class)
	writeIntRange(&b, "scan angle", res.ScanAngle)
	writeIntRange(&b, "user data", res.UserData)
	writeIntRange(&b, "point source id", res.PointSource)
	writeFloatRange(&b, "gps time", res.GPSTime)
	writeIntRange(&b, "red", res.Red)
	writeIntRange(&b, "green", res.Green)
	writeIntRange(&b, "blue", res.Blue)
	writeIntRange(&b, "nir", res.NIR)
	writeIntRange(&b, "wave descriptor", res.WaveDesc)
	writeIntRange(&b, "scanner channel", res.ScannerChannel)
	writeIntRange(&b, "ext scan angle", res.ExtScanAngle)

	for i, r := range res.Extra {
		name := fmt.Sprintf("attribute %d", i)
		if i < len(attrs) && attrs[i].Name != "" {
			name = attrs[i].Name
		}
		writeFloatRange(&b, name, r)
	}

	if returns := byReturnLines(res); returns != "" {
		b.WriteString("\nBy return\n")
		b.WriteString(returns)
	}

	b.WriteString("\nClassification\n")
	for code := 0; code < len(res.Classes); code++ {
		ct := res.Classes[code]
		if ct.Total == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %3d  %-26s %d%s\n", code, ClassName(uint8(code)), ct.Total, flagSuffix(ct))
	}

	return b.String()
}

func byReturnLines(res *summary.Result) string {
	var b strings.Builder
	for i, c := range res.ByReturn {
		if c == 0 {
			continue
		}
		label := fmt.Sprintf("return %d", i)
		if i == 0 {
			label = "return unset"
		}
		fmt.Fprintf(&b, "  %-24s %d\n", label, c)
	}
	return b.String()
}

func flagSuffix(ct summary.ClassTally) string {
	var parts []string
	if ct.Synthetic > 0 {
		parts = append(parts, fmt.Sprintf("%d synthetic", ct.Synthetic))
	}
	if ct.KeyPoint > 0 {
		parts = append(parts, fmt.Sprintf("%d key-point", ct.KeyPoint))
	}
	if ct.Withheld > 0 {
		parts = append(parts, fmt.Sprintf("%d withheld", ct.Withheld))
	}
	if ct.Overlap > 0 {
		parts = append(parts, fmt.Sprintf("%d overlap", ct.Overlap))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, ", ") + ")"
}

func writeIntRange(b *strings.Builder, label string, r summary.IntRange) {
	if !r.Set {
		return
	}
	fmt.Fprintf(b, "  %-24s %d..%d\n", label, r.Min, r.Max)
}

func writeFloatRange(b *strings.Builder, label string, r summary.FloatRange) {
	if !r.Set {
		return
	}
	fmt.Fprintf(b, "  %-24s %g..%g\n", label, r.Min, r.Max)
}

// Warnings renders each discrepancy as one warning line.
func Warnings(ds []consistency.Discrepancy) string {
	if len(ds) == 0 {
		return ""
	}
	var b strings.Builder
	for _, d := range ds {
		fmt.Fprintf(&b, "WARNING: %s\n", d)
	}
	return b.String()
}

// RepairReport renders a repair outcome.
func RepairReport(rep repair.Report) string {
	var b strings.Builder
	for _, field := range rep.Patched {
		fmt.Fprintf(&b, "repaired: %s\n", field)
	}
	for _, s := range rep.Skipped {
		fmt.Fprintf(&b, "not repaired: %s (%s)\n", s.Field, s.Reason)
	}
	if len(rep.Patched) == 0 && len(rep.Skipped) == 0 {
		b.WriteString("nothing to repair\n")
	}
	return b.String()
}
