package audit_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/johns/lascheck/internal/audit"
	"github.com/johns/lascheck/internal/consistency"
	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/lasio"
	"github.com/johns/lascheck/internal/lastest"
)

// threePoints is the shared fixture body: three truthful records with
// coordinates that are not all multiples of ten on any axis.
func threePoints() []lasio.Point {
	return []lasio.Point{
		{X: 101, Y: 203, Z: 333, ReturnNumber: 1, NumberOfReturns: 2},
		{X: -40, Y: 601, Z: 110, ReturnNumber: 2, NumberOfReturns: 2},
		{X: 30, Y: 155, Z: 222, ReturnNumber: 1, NumberOfReturns: 1},
	}
}

func writeFixture(t *testing.T, s lastest.Spec) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.las")
	if err := lastest.WriteFile(path, s); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func defaultOpts() audit.Options {
	return audit.Options{Checks: consistency.DefaultOptions()}
}

func TestRun_CleanFile(t *testing.T) {
	path := writeFixture(t, lastest.Spec{VersionMinor: 2, PointFormat: 0, Points: threePoints()})

	out, err := audit.Run(path, defaultOpts())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Discrepancies) != 0 {
		t.Fatalf("clean file reported %+v", out.Discrepancies)
	}
	if out.Summary.N != 3 {
		t.Errorf("summary N = %d, want 3", out.Summary.N)
	}
	if out.Repair != nil {
		t.Error("no repair requested, Repair must be nil")
	}
}

func TestRun_CleanFileWithEVLRs(t *testing.T) {
	// A 1.4 file carries its extended VLRs after the point data. Those
	// records must never be decoded as points, or a truthful header gets
	// flagged (and repaired into corruption) for counts and bounds it
	// never lied about.
	path := writeFixture(t, lastest.Spec{
		VersionMinor: 4,
		PointFormat:  6,
		Points: []lasio.Point{
			{X: 101, Y: 203, Z: 333, ReturnNumber: 1, NumberOfReturns: 1, HasGPSTime: true, GPSTime: 1.5},
			{X: -40, Y: 601, Z: 110, ReturnNumber: 1, NumberOfReturns: 1, HasGPSTime: true, GPSTime: 2.5},
		},
		EVLRs: []lastest.EVLR{
			{UserID: "LASF_Projection", RecordID: 2112, Payload: []byte("GEOGCS[\"WGS 84\"]")},
		},
	})

	out, err := audit.Run(path, defaultOpts())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Summary.N != 2 {
		t.Errorf("summary N = %d, want 2", out.Summary.N)
	}
	if len(out.Discrepancies) != 0 {
		t.Fatalf("consistent file reported %+v", out.Discrepancies)
	}
}

func TestRun_LyingPointCount(t *testing.T) {
	path := writeFixture(t, lastest.Spec{VersionMinor: 2, PointFormat: 0, Points: threePoints()})

	// Declare 1000 records while the stream holds 3.
	corruptU32(t, path, lasfmt.OffPointCountLegacy, 1000)

	out, err := audit.Run(path, defaultOpts())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Discrepancies) != 1 {
		t.Fatalf("want exactly one discrepancy, got %+v", out.Discrepancies)
	}

	d := out.Discrepancies[0]
	if d.Family != consistency.PointCount || !d.Repairable {
		t.Errorf("discrepancy = %+v", d)
	}
	if d.Declared != "1000" || d.Derived != "3" {
		t.Errorf("declared/derived = %q/%q", d.Declared, d.Derived)
	}
}

func TestRun_RepairConverges(t *testing.T) {
	path := writeFixture(t, lastest.Spec{VersionMinor: 2, PointFormat: 0, Points: threePoints()})
	corruptU32(t, path, lasfmt.OffPointCountLegacy, 1000)

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	opts := defaultOpts()
	opts.Repair = true
	out, err := audit.Run(path, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Repair == nil || len(out.Repair.Patched) != 1 {
		t.Fatalf("repair report = %+v", out.Repair)
	}
	if len(out.PostRepair) != 0 {
		t.Fatalf("discrepancies survived repair: %+v", out.PostRepair)
	}
	if out.Header.PointCountLegacy != 3 {
		t.Errorf("reloaded header count = %d, want 3", out.Header.PointCountLegacy)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := binary.LittleEndian.Uint32(after[lasfmt.OffPointCountLegacy:]); got != 3 {
		t.Fatalf("on-disk count = %d, want 3", got)
	}

	// Only the four count bytes changed.
	copy(before[lasfmt.OffPointCountLegacy:lasfmt.OffPointCountLegacy+4],
		after[lasfmt.OffPointCountLegacy:lasfmt.OffPointCountLegacy+4])
	if !bytes.Equal(before, after) {
		t.Error("repair touched bytes outside the point count field")
	}
}

func TestRun_RepairSkipsUnrepairable(t *testing.T) {
	// Scale 0.01 with a bounding box that does not land on a scale step.
	path := writeFixture(t, lastest.Spec{VersionMinor: 2, PointFormat: 0, Points: threePoints()})
	corruptF64(t, path, lasfmt.OffBoundingBox, 100.003)

	opts := defaultOpts()
	opts.Repair = true
	out, err := audit.Run(path, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Repair == nil {
		t.Fatal("repair pass did not run")
	}

	// The off-step extent also fails the bounds comparison; that half is
	// patched from the stream, so the repaired header must pass it.
	for _, d := range out.PostRepair {
		if d.Family == consistency.BoundingBox {
			t.Errorf("bounding box still inconsistent after repair: %+v", d)
		}
	}
}

func TestRun_SubRange(t *testing.T) {
	var points []lasio.Point
	for i := int32(1); i <= 10; i++ {
		points = append(points, lasio.Point{X: i, Y: i, Z: i, ReturnNumber: 1, NumberOfReturns: 1})
	}
	path := writeFixture(t, lastest.Spec{VersionMinor: 2, PointFormat: 0, Points: points})

	opts := defaultOpts()
	opts.Start = 2
	opts.Count = 5
	out, err := audit.Run(path, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Summary.N != 5 {
		t.Errorf("summary N = %d, want 5", out.Summary.N)
	}
	if out.Summary.X.Min != 3 || out.Summary.X.Max != 7 {
		t.Errorf("X range = [%d, %d], want [3, 7]", out.Summary.X.Min, out.Summary.X.Max)
	}
}

func TestRun_OOBLog(t *testing.T) {
	path := writeFixture(t, lastest.Spec{VersionMinor: 2, PointFormat: 0, Points: threePoints()})

	// Shrink the declared max X well below the real extreme.
	corruptF64(t, path, lasfmt.OffBoundingBox, 0.5)

	var log bytes.Buffer
	opts := defaultOpts()
	opts.OOBLog = &log
	out, err := audit.Run(path, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var oob bool
	for _, d := range out.Discrepancies {
		if d.Detail == "out of bounds points" {
			oob = true
		}
	}
	if !oob {
		t.Errorf("no out-of-bounds discrepancy in %+v", out.Discrepancies)
	}
	if log.Len() == 0 {
		t.Error("out-of-bounds log is empty")
	}
}

func TestRun_RefusesCompressedRepair(t *testing.T) {
	// A .zst input decompresses to a temp file, so in-place patching
	// would modify a throwaway copy. Repair must refuse rather than lie.
	raw := lastest.Build(lastest.Spec{VersionMinor: 2, PointFormat: 0, Points: threePoints()})
	binary.LittleEndian.PutUint32(raw[lasfmt.OffPointCountLegacy:], 1000)

	path := filepath.Join(t.TempDir(), "sample.las.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write(raw); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	opts := defaultOpts()
	opts.Repair = true
	_, err = audit.Run(path, opts)
	if err == nil || !strings.Contains(err.Error(), "cannot repair") {
		t.Fatalf("err = %v, want compressed-repair refusal", err)
	}
}

func TestRun_MissingFile(t *testing.T) {
	if _, err := audit.Run(filepath.Join(t.TempDir(), "absent.las"), defaultOpts()); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func corruptU32(t *testing.T, path string, off int64, v uint32) {
	t.Helper()
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	patchAt(t, path, off, b[:])
}

func corruptF64(t *testing.T, path string, off int64, v float64) {
	t.Helper()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	patchAt(t, path, off, b[:])
}

func patchAt(t *testing.T, path string, off int64, b []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteAt(b, off); err != nil {
		t.Fatalf("write: %v", err)
	}
}
