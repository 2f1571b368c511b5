package repair_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/johns/lascheck/internal/consistency"
	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/lasio"
	"github.com/johns/lascheck/internal/lastest"
	"github.com/johns/lascheck/internal/repair"
	"github.com/johns/lascheck/internal/summary"
)

func headerFor(t *testing.T, s lastest.Spec) *lasfmt.Header {
	t.Helper()
	h, err := lasfmt.Decode(lastest.Build(s))
	if err != nil {
		t.Fatalf("decode fixture header: %v", err)
	}
	return h
}

func countDiscrepancy() consistency.Discrepancy {
	return consistency.Discrepancy{Family: consistency.PointCount, Repairable: true}
}

func TestPlan_PointCountLegacy(t *testing.T) {
	h := headerFor(t, lastest.Spec{VersionMinor: 2, PointFormat: 0})
	res := &summary.Result{N: 998}

	patches, rep := repair.Plan(h, res, []consistency.Discrepancy{countDiscrepancy()})
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}

	p := patches[0]
	if p.Offset != lasfmt.OffPointCountLegacy || len(p.Bytes) != 4 {
		t.Fatalf("patch = offset %d len %d", p.Offset, len(p.Bytes))
	}
	if got := binary.LittleEndian.Uint32(p.Bytes); got != 998 {
		t.Errorf("patched value = %d, want 998", got)
	}
	if len(rep.Patched) != 1 || len(rep.Skipped) != 0 {
		t.Errorf("report = %+v", rep)
	}
}

func TestPlan_PointCountOverflowPre14(t *testing.T) {
	h := headerFor(t, lastest.Spec{VersionMinor: 2, PointFormat: 0})
	res := &summary.Result{N: math.MaxUint32 + 1}

	patches, rep := repair.Plan(h, res, []consistency.Discrepancy{countDiscrepancy()})
	if len(patches) != 0 {
		t.Fatalf("overflowing count must not be narrowed, got patches %+v", patches)
	}
	if len(rep.Skipped) != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if !strings.Contains(rep.Skipped[0].Reason, "too large for 32-bit") {
		t.Errorf("skip reason = %q", rep.Skipped[0].Reason)
	}
}

func TestPlan_PointCountOverflow14(t *testing.T) {
	h := headerFor(t, lastest.Spec{VersionMinor: 4, PointFormat: 0})
	res := &summary.Result{N: math.MaxUint32 + 1}

	patches, _ := repair.Plan(h, res, []consistency.Discrepancy{countDiscrepancy()})
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want legacy zero + extended", len(patches))
	}
	if patches[0].Offset != lasfmt.OffPointCountLegacy {
		t.Errorf("first patch offset = %d", patches[0].Offset)
	}
	if got := binary.LittleEndian.Uint32(patches[0].Bytes); got != 0 {
		t.Errorf("legacy field = %d, want 0", got)
	}
	if patches[1].Offset != lasfmt.OffPointCountExtended {
		t.Errorf("second patch offset = %d", patches[1].Offset)
	}
	if got := binary.LittleEndian.Uint64(patches[1].Bytes); got != math.MaxUint32+1 {
		t.Errorf("extended field = %d", got)
	}
}

func TestPlan_ExtendedFormatZeroesLegacy(t *testing.T) {
	h := headerFor(t, lastest.Spec{VersionMinor: 4, PointFormat: 6})
	res := &summary.Result{N: 3}

	patches, _ := repair.Plan(h, res, []consistency.Discrepancy{
		countDiscrepancy(),
		{Family: consistency.ByReturn, Repairable: true},
	})
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	for _, p := range patches {
		for _, b := range p.Bytes {
			if b != 0 {
				t.Fatalf("legacy counters on format 6 must be zeroed, patch = %+v", p)
			}
		}
	}
}

func TestPlan_ByReturn(t *testing.T) {
	h := headerFor(t, lastest.Spec{VersionMinor: 2, PointFormat: 1})
	res := &summary.Result{N: 6}
	res.ByReturn[1] = 4
	res.ByReturn[2] = 2

	patches, _ := repair.Plan(h, res, []consistency.Discrepancy{
		{Family: consistency.ByReturn, Repairable: true},
	})
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}

	p := patches[0]
	if p.Offset != lasfmt.OffByReturnLegacy || len(p.Bytes) != 20 {
		t.Fatalf("patch = offset %d len %d", p.Offset, len(p.Bytes))
	}
	want := []uint32{4, 2, 0, 0, 0}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(p.Bytes[i*4:]); got != w {
			t.Errorf("slot %d = %d, want %d", i+1, got, w)
		}
	}
}

func TestPlan_DedupesFamily(t *testing.T) {
	h := headerFor(t, lastest.Spec{VersionMinor: 2, PointFormat: 0})
	res := &summary.Result{N: 1}
	res.X.Set, res.Y.Set, res.Z.Set = true, true, true

	// Per-axis bounding box discrepancies collapse into one 48-byte patch.
	patches, rep := repair.Plan(h, res, []consistency.Discrepancy{
		{Family: consistency.BoundingBox, Detail: "max x", Repairable: true},
		{Family: consistency.BoundingBox, Detail: "min y", Repairable: true},
		{Family: consistency.BoundingBox, Detail: "max z", Repairable: true},
	})
	if len(patches) != 1 || len(rep.Patched) != 1 {
		t.Fatalf("patches = %d, patched = %v", len(patches), rep.Patched)
	}
	if patches[0].Offset != lasfmt.OffBoundingBox || len(patches[0].Bytes) != 48 {
		t.Errorf("patch = offset %d len %d", patches[0].Offset, len(patches[0].Bytes))
	}
}

func TestPlan_UnrepairableSkipped(t *testing.T) {
	h := headerFor(t, lastest.Spec{VersionMinor: 2, PointFormat: 0})

	patches, rep := repair.Plan(h, &summary.Result{}, []consistency.Discrepancy{
		{Family: consistency.Resolution, Repairable: false},
	})
	if len(patches) != 0 {
		t.Fatalf("unexpected patches %+v", patches)
	}
	if len(rep.Skipped) != 1 || rep.Skipped[0].Reason != "no automatic repair" {
		t.Errorf("report = %+v", rep)
	}
}

func TestApply(t *testing.T) {
	spec := lastest.Spec{
		VersionMinor: 2,
		PointFormat:  0,
		Points: []lasio.Point{
			{X: 1, ReturnNumber: 1, NumberOfReturns: 1},
			{X: 2, ReturnNumber: 1, NumberOfReturns: 1},
		},
	}
	path := filepath.Join(t.TempDir(), "fix.las")
	if err := lastest.WriteFile(path, spec); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := repair.Apply(path, []lasfmt.Patch{lasfmt.PointCountLegacyPatch(999)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := binary.LittleEndian.Uint32(after[lasfmt.OffPointCountLegacy:]); got != 999 {
		t.Fatalf("point count after apply = %d, want 999", got)
	}

	// Everything outside the 4-byte span is untouched.
	copy(before[lasfmt.OffPointCountLegacy:lasfmt.OffPointCountLegacy+4],
		after[lasfmt.OffPointCountLegacy:lasfmt.OffPointCountLegacy+4])
	if !bytes.Equal(before, after) {
		t.Error("bytes outside the patch span changed")
	}
}

func TestApply_NoPatches(t *testing.T) {
	// No patches means no open: the path may not even exist.
	if err := repair.Apply(filepath.Join(t.TempDir(), "absent.las"), nil); err != nil {
		t.Fatalf("Apply with empty plan: %v", err)
	}
}
