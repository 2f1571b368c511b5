package lasfmt

import (
	"encoding/binary"
	"math"
)

// Patch is one contiguous byte span to overwrite in the header region.
// Patches never touch adjacent bytes: the point payload after the header
// must not shift, so repairs are expressed as exact (offset, bytes) pairs
// and can be inspected as pure data before any I/O happens.
type Patch struct {
	Offset int64
	Bytes  []byte
}

// PointCountLegacyPatch encodes the 32-bit point count field.
func PointCountLegacyPatch(count uint32) Patch {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, count)
	return Patch{Offset: OffPointCountLegacy, Bytes: b}
}

// ByReturnLegacyPatch encodes the five legacy by-return counts as one
// contiguous write; the slots are adjacent in the layout.
func ByReturnLegacyPatch(counts [5]uint32) Patch {
	b := make([]byte, 4*legacyReturnSlots)
	for i, c := range counts {
		binary.LittleEndian.PutUint32(b[4*i:], c)
	}
	return Patch{Offset: OffByReturnLegacy, Bytes: b}
}

// PointCountExtendedPatch encodes the 64-bit point count field.
func PointCountExtendedPatch(count uint64) Patch {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, count)
	return Patch{Offset: OffPointCountExtended, Bytes: b}
}

// ByReturnExtendedPatch encodes the fifteen extended by-return counts as
// one contiguous write.
func ByReturnExtendedPatch(counts [15]uint64) Patch {
	b := make([]byte, 8*extendedReturnSlots)
	for i, c := range counts {
		binary.LittleEndian.PutUint64(b[8*i:], c)
	}
	return Patch{Offset: OffByReturnExtended, Bytes: b}
}

// BoundingBoxPatch encodes all six extent scalars as one contiguous
// 48-byte write, in the layout's MaxX, MinX, MaxY, MinY, MaxZ, MinZ order.
// Rewriting the block whole keeps the six values mutually consistent.
func BoundingBoxPatch(maxX, minX, maxY, minY, maxZ, minZ float64) Patch {
	b := make([]byte, 48)
	for i, v := range [6]float64{maxX, minX, maxY, minY, maxZ, minZ} {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(v))
	}
	return Patch{Offset: OffBoundingBox, Bytes: b}
}
