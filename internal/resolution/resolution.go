// Package resolution checks whether stored coordinates are representable
// under a header's offset/scale pair, and classifies "fluff": apparent
// precision that exceeds the data's true precision, visible as trailing
// zero digits in the integer domain.
package resolution

import "math"

// Tolerance is the maximum distance between (coord-offset)/scale and its
// nearest integer for the coordinate to count as representable. The value
// is an empirical heuristic carried over from long-standing practice; it
// has no derivation and may warrant retuning for extreme magnitudes.
const Tolerance = 0.001

// IsRepresentable reports whether coord equals offset + scale*n for some
// integer n to within Tolerance. Quantization rounds half away from zero.
func IsRepresentable(coord, offset, scale float64) bool {
	if scale == 0 {
		return false
	}
	ratio := (coord - offset) / scale
	return math.Abs(ratio-math.Round(ratio)) < Tolerance
}

// Severity classifies how many trailing decimal digits of an integer
// coordinate are zero beyond what the scale factor explains.
type Severity int

const (
	None Severity = iota
	X10
	X100
	X1000
	X10000
)

func (s Severity) String() string {
	switch s {
	case X10:
		return "10x"
	case X100:
		return "100x"
	case X1000:
		return "1000x"
	case X10000:
		return "10000x"
	default:
		return "none"
	}
}

// Classify reports the fluff severity of one integer-domain coordinate.
// Each threshold only escalates from the previous: a value divisible by
// 1000 is also divisible by 100 and 10.
func Classify(raw int32) Severity {
	switch {
	case raw%10 != 0:
		return None
	case raw%100 != 0:
		return X10
	case raw%1000 != 0:
		return X100
	case raw%10000 != 0:
		return X1000
	default:
		return X10000
	}
}

// Min returns the lesser severity. File-level fluff is the worst severity
// that every point shares, so per-point observations fold with Min.
func Min(a, b Severity) Severity {
	if b < a {
		return b
	}
	return a
}
