// Package summary accumulates ground-truth statistics over a point
// stream: extents, counts, and histograms, one record at a time with no
// buffering. Every counter is 64-bit regardless of the width of the
// header field it will eventually be compared against; narrowing happens
// only at repair time.
package summary

import (
	"github.com/johns/lascheck/internal/lasio"
	"github.com/johns/lascheck/internal/resolution"
)

// IntRange tracks a min/max pair over integer-valued fields. Set
// distinguishes "no value seen" from any real extent.
type IntRange struct {
	Min, Max int64
	Set      bool
}

func (r *IntRange) Add(v int64) {
	if !r.Set {
		r.Min, r.Max, r.Set = v, v, true
		return
	}
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

// FloatRange tracks a min/max pair over float-valued fields.
type FloatRange struct {
	Min, Max float64
	Set      bool
}

func (r *FloatRange) Add(v float64) {
	if !r.Set {
		r.Min, r.Max, r.Set = v, v, true
		return
	}
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

// ClassTally counts one classification code, subdivided by the
// independent per-point flag dimensions. Overlap only accumulates for
// extended point formats.
type ClassTally struct {
	Total     uint64
	Synthetic uint64
	KeyPoint  uint64
	Withheld  uint64
	Overlap   uint64
}

// Result is the frozen output of one accumulation pass.
type Result struct {
	N uint64 // total records seen

	// Raw integer-domain coordinate extents; the header's own
	// scale/offset turns these into real-world bounds.
	X, Y, Z IntRange

	Intensity    IntRange
	ReturnNum    IntRange
	NumReturns   IntRange
	Class        IntRange
	ScanAngle    IntRange // degrees, formats 0-5
	UserData     IntRange
	PointSource  IntRange
	GPSTime      FloatRange
	Red          IntRange
	Green        IntRange
	Blue         IntRange
	NIR          IntRange
	WaveDesc     IntRange
	WaveOffset   IntRange
	WaveSize     IntRange
	WaveReturnPt FloatRange

	// Extended-encoding fields, tracked only for formats 6-10.
	ExtReturnNum   IntRange
	ExtNumReturns  IntRange
	ExtClass       IntRange
	ExtScanAngle   IntRange // 0.006-degree units
	ScannerChannel IntRange

	// Extra holds per-attribute min/max for named extra-bytes
	// attributes, indexed as in the file's descriptor VLR.
	Extra []FloatRange

	// ByReturn and ByPulse count records by return number and by number
	// of returns per pulse. Slot 0 means unset/invalid: return numbers
	// are defined to start at 1.
	ByReturn [16]uint64
	ByPulse  [16]uint64

	// ZeroReturn counts records whose return number is 0.
	ZeroReturn uint64

	Classes [256]ClassTally

	// Per-axis fluff severity: the coarsest trailing-zero pattern every
	// coordinate on that axis shares. Meaningful only when N > 0.
	FluffX, FluffY, FluffZ resolution.Severity
}

// Empty reports whether the pass saw no records at all.
func (r *Result) Empty() bool { return r.N == 0 }

// ByReturnSlice returns the first n by-return slots starting at return
// number 1, the shape the header's by-return fields use.
func (r *Result) ByReturnSlice(n int) []uint64 {
	out := make([]uint64, n)
	for i := 0; i < n && i+1 < len(r.ByReturn); i++ {
		out[i] = r.ByReturn[i+1]
	}
	return out
}

// Fluff returns the worst per-axis fluff severity for the file.
func (r *Result) Fluff() resolution.Severity {
	if r.Empty() {
		return resolution.None
	}
	worst := r.FluffX
	if r.FluffY > worst {
		worst = r.FluffY
	}
	if r.FluffZ > worst {
		worst = r.FluffZ
	}
	return worst
}

// Accumulator folds point records into a Result. Create one per file,
// feed it every record in stream order, then Finalize exactly once.
type Accumulator struct {
	res       Result
	finalized bool
}

// New returns an empty accumulator.
func New() *Accumulator {
	a := &Accumulator{}
	a.Reset()
	return a
}

// Reset clears all counters back to the unset sentinel state so an empty
// pass cannot report false extents.
func (a *Accumulator) Reset() {
	a.res = Result{
		// Fluff folds downward from the coarsest severity: a single
		// coordinate with a nonzero trailing digit clears it.
		FluffX: resolution.X10000,
		FluffY: resolution.X10000,
		FluffZ: resolution.X10000,
	}
	a.finalized = false
}

// Add folds one record into the running statistics. Fields absent on the
// record's encoding leave their slot unset. Calling Add after Finalize is
// a programming error and panics.
func (a *Accumulator) Add(p *lasio.Point) {
	if a.finalized {
		panic("summary: Add after Finalize")
	}
	r := &a.res
	r.N++

	r.X.Add(int64(p.X))
	r.Y.Add(int64(p.Y))
	r.Z.Add(int64(p.Z))
	r.FluffX = resolution.Min(r.FluffX, resolution.Classify(p.X))
	r.FluffY = resolution.Min(r.FluffY, resolution.Classify(p.Y))
	r.FluffZ = resolution.Min(r.FluffZ, resolution.Classify(p.Z))

	r.Intensity.Add(int64(p.Intensity))
	r.ReturnNum.Add(int64(p.ReturnNumber))
	r.NumReturns.Add(int64(p.NumberOfReturns))
	r.Class.Add(int64(p.Classification))
	r.UserData.Add(int64(p.UserData))
	r.PointSource.Add(int64(p.PointSourceID))

	r.ByReturn[p.ReturnNumber&0x0f]++
	r.ByPulse[p.NumberOfReturns&0x0f]++
	if p.ReturnNumber == 0 {
		r.ZeroReturn++
	}

	ct := &r.Classes[p.Classification]
	ct.Total++
	if p.Synthetic {
		ct.Synthetic++
	}
	if p.KeyPoint {
		ct.KeyPoint++
	}
	if p.Withheld {
		ct.Withheld++
	}

	if p.Extended {
		r.ExtReturnNum.Add(int64(p.ReturnNumber))
		r.ExtNumReturns.Add(int64(p.NumberOfReturns))
		r.ExtClass.Add(int64(p.Classification))
		r.ExtScanAngle.Add(int64(p.ScanAngle))
		r.ScannerChannel.Add(int64(p.ScannerChannel))
		if p.Overlap {
			ct.Overlap++
		}
	} else {
		r.ScanAngle.Add(int64(p.ScanAngle))
	}

	if p.HasGPSTime {
		r.GPSTime.Add(p.GPSTime)
	}
	if p.HasRGB {
		r.Red.Add(int64(p.Red))
		r.Green.Add(int64(p.Green))
		r.Blue.Add(int64(p.Blue))
	}
	if p.HasNIR {
		r.NIR.Add(int64(p.NIR))
	}
	if p.HasWave {
		r.WaveDesc.Add(int64(p.WaveDescriptor))
		r.WaveOffset.Add(int64(p.WaveOffset))
		r.WaveSize.Add(int64(p.WaveSize))
		r.WaveReturnPt.Add(float64(p.WaveReturnPoint))
	}

	for len(r.Extra) < len(p.Extra) {
		r.Extra = append(r.Extra, FloatRange{})
	}
	for i, v := range p.Extra {
		r.Extra[i].Add(v)
	}
}

// Finalize freezes the accumulator and returns the result snapshot. The
// result must not be mutated; the accumulator rejects further Adds.
func (a *Accumulator) Finalize() *Result {
	a.finalized = true
	return &a.res
}
