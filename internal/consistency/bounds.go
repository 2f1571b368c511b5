package consistency

import (
	"fmt"
	"io"

	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/lasio"
)

// BoundsWatcher counts points falling outside the header's declared
// bounding box during the accumulation pass. The box is enlarged by a
// quarter of a scale unit on each side to absorb quantization rounding.
type BoundsWatcher struct {
	h *lasfmt.Header

	minX, maxX float64
	minY, maxY float64
	minZ, maxZ float64

	// Count is the number of out-of-bounds points observed.
	Count uint64

	// Log receives one line per out-of-bounds point when non-nil.
	Log io.Writer
}

// NewBoundsWatcher builds a watcher for the header's declared box.
func NewBoundsWatcher(h *lasfmt.Header) *BoundsWatcher {
	return &BoundsWatcher{
		h:    h,
		minX: h.MinX - h.ScaleX/4, maxX: h.MaxX + h.ScaleX/4,
		minY: h.MinY - h.ScaleY/4, maxY: h.MaxY + h.ScaleY/4,
		minZ: h.MinZ - h.ScaleZ/4, maxZ: h.MaxZ + h.ScaleZ/4,
	}
}

// Observe checks one point against the enlarged box. index is the
// record's position in the stream, used only for logging.
func (w *BoundsWatcher) Observe(p *lasio.Point, index uint64) {
	x := w.h.OffX + w.h.ScaleX*float64(p.X)
	y := w.h.OffY + w.h.ScaleY*float64(p.Y)
	z := w.h.OffZ + w.h.ScaleZ*float64(p.Z)

	if x >= w.minX && x <= w.maxX && y >= w.minY && y <= w.maxY && z >= w.minZ && z <= w.maxZ {
		return
	}
	w.Count++
	if w.Log != nil {
		fmt.Fprintf(w.Log, "point %d outside bounding box: %g %g %g\n", index, x, y, z)
	}
}

// Discrepancy converts a nonzero out-of-bounds count into a bounding box
// discrepancy. Returns false when every point was inside the box.
func (w *BoundsWatcher) Discrepancy() (Discrepancy, bool) {
	if w.Count == 0 {
		return Discrepancy{}, false
	}
	return Discrepancy{
		Family:     BoundingBox,
		Detail:     "out of bounds points",
		Declared:   "all points inside declared box",
		Derived:    fmt.Sprintf("%d points outside", w.Count),
		Repairable: true,
	}, true
}
