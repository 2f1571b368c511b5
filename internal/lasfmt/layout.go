package lasfmt

// Signature is the four-byte magic at the start of every LAS file.
const Signature = "LASF"

// Byte offsets of the public header block fields. All multi-byte integers
// are little-endian; bounding box and scale/offset fields are IEEE float64.
const (
	offSignature      = 0
	offFileSourceID   = 4
	offGlobalEncoding = 6
	offGUID1          = 8
	offGUID2          = 12
	offGUID3          = 14
	offGUID4          = 16
	offVersionMajor   = 24
	offVersionMinor   = 25
	offSystemID       = 26
	offSoftware       = 58
	offCreationDay    = 90
	offCreationYear   = 92
	offHeaderSize     = 94
	offOffsetToPoints = 96
	offVLRCount       = 100
	offPointFormat    = 104
	offRecordLength   = 105

	// OffPointCountLegacy is the 32-bit point count, authoritative for
	// point formats 0-5 only.
	OffPointCountLegacy = 107

	// OffByReturnLegacy starts the five adjacent 32-bit by-return counts.
	OffByReturnLegacy = 111

	offScaleX = 131
	offScaleY = 139
	offScaleZ = 147
	offOffX   = 155
	offOffY   = 163
	offOffZ   = 171

	// OffBoundingBox starts the six adjacent float64 extent fields, in
	// MaxX, MinX, MaxY, MinY, MaxZ, MinZ order.
	OffBoundingBox = 179

	offWaveform  = 227 // version >= 1.3
	offEVLRStart = 235 // version >= 1.4
	offEVLRCount = 243

	// OffPointCountExtended is the 64-bit point count (version >= 1.4).
	OffPointCountExtended = 247

	// OffByReturnExtended starts the fifteen adjacent 64-bit by-return
	// counts (version >= 1.4).
	OffByReturnExtended = 255
)

// Minimum header sizes by version. Version 1.3 appended the waveform data
// packet offset; 1.4 appended EVLR bookkeeping and the extended counters.
const (
	HeaderSize12 = 227
	HeaderSize13 = 235
	HeaderSize14 = 375
)

const (
	stringFieldLen = 32 // SystemID and GeneratingSoftware widths

	legacyReturnSlots   = 5
	extendedReturnSlots = 15
)

// MinHeaderSize returns the smallest legal header size for a format version.
func MinHeaderSize(major, minor uint8) int {
	switch {
	case major > 1 || (major == 1 && minor >= 4):
		return HeaderSize14
	case major == 1 && minor == 3:
		return HeaderSize13
	default:
		return HeaderSize12
	}
}
