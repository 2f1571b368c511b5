package resolution

import "testing"

func TestIsRepresentable(t *testing.T) {
	cases := []struct {
		coord, offset, scale float64
		want                 bool
	}{
		{100.0, 0.0, 0.01, true},
		{100.003, 0.0, 0.01, false}, // ratio 10000.3, distance 0.3
		{100.005, 0.0, 0.01, false}, // half-way case is still 0.5 off
		{-100.0, 0.0, 0.01, true},
		{500000.37, 500000, 0.01, true},
		{0, 0, 0.001, true},
		{1.0, 0.0, 0, false}, // zero scale can represent nothing
	}
	for _, c := range cases {
		if got := IsRepresentable(c.coord, c.offset, c.scale); got != c.want {
			t.Errorf("IsRepresentable(%g, %g, %g) = %v, want %v", c.coord, c.offset, c.scale, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		raw  int32
		want Severity
	}{
		{123, None},
		{120, X10},
		{1200, X100},
		{12000, X1000},
		{120000, X10000},
		{-1200, X100},
		{0, X10000}, // zero divides everything
	}
	for _, c := range cases {
		if got := Classify(c.raw); got != c.want {
			t.Errorf("Classify(%d) = %s, want %s", c.raw, got, c.want)
		}
	}
}

func TestMin(t *testing.T) {
	if got := Min(X1000, X10); got != X10 {
		t.Errorf("Min(X1000, X10) = %s, want 10x", got)
	}
	if got := Min(None, X10000); got != None {
		t.Errorf("Min(None, X10000) = %s, want none", got)
	}
}

func TestSeverityString(t *testing.T) {
	if X100.String() != "100x" || None.String() != "none" {
		t.Errorf("unexpected strings: %s %s", X100, None)
	}
}
