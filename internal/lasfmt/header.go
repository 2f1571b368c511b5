// Package lasfmt holds static knowledge of the LAS public header block:
// field offsets per format version, header decoding, and minimal binary
// patch encoding for in-place repair.
package lasfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformedHeader indicates a header that cannot be decoded at all:
// buffer shorter than the version's minimum size, or a bad signature.
var ErrMalformedHeader = errors.New("malformed header")

// Header is the decoded public header block of one file. Constructed once
// per file by Decode and immutable afterward; repair re-decodes a fresh
// instance to confirm correction.
type Header struct {
	FileSourceID   uint16
	GlobalEncoding uint16
	ProjectID1     uint32
	ProjectID2     uint16
	ProjectID3     uint16
	ProjectID4     [8]byte
	VersionMajor   uint8
	VersionMinor   uint8
	SystemID       string
	Software       string
	CreationDay    uint16
	CreationYear   uint16
	HeaderSize     uint16
	OffsetToPoints uint32
	VLRCount       uint32
	PointFormat    uint8
	RecordLength   uint16

	// Legacy 32-bit counters. Authoritative for point formats 0-5;
	// formats >= 6 require them to read as zero.
	PointCountLegacy uint32
	ByReturnLegacy   [5]uint32

	ScaleX, ScaleY, ScaleZ float64
	OffX, OffY, OffZ       float64

	MaxX, MinX float64
	MaxY, MinY float64
	MaxZ, MinZ float64

	// WaveformOffset is present for version >= 1.3.
	WaveformOffset uint64

	// Extended 64-bit counters, present for version >= 1.4.
	EVLRStart          uint64
	EVLRCount          uint32
	PointCountExtended uint64
	ByReturnExtended   [15]uint64
}

// Decode parses a raw public header block. The buffer must hold at least
// the minimum header size for the declared version.
func Decode(raw []byte) (*Header, error) {
	if len(raw) < HeaderSize12 {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedHeader, len(raw), HeaderSize12)
	}
	if string(raw[offSignature:offSignature+4]) != Signature {
		return nil, fmt.Errorf("%w: signature %q, want %q", ErrMalformedHeader, raw[0:4], Signature)
	}

	h := &Header{
		FileSourceID:   binary.LittleEndian.Uint16(raw[offFileSourceID:]),
		GlobalEncoding: binary.LittleEndian.Uint16(raw[offGlobalEncoding:]),
		ProjectID1:     binary.LittleEndian.Uint32(raw[offGUID1:]),
		ProjectID2:     binary.LittleEndian.Uint16(raw[offGUID2:]),
		ProjectID3:     binary.LittleEndian.Uint16(raw[offGUID3:]),
		VersionMajor:   raw[offVersionMajor],
		VersionMinor:   raw[offVersionMinor],
		SystemID:       decodeString(raw[offSystemID : offSystemID+stringFieldLen]),
		Software:       decodeString(raw[offSoftware : offSoftware+stringFieldLen]),
		CreationDay:    binary.LittleEndian.Uint16(raw[offCreationDay:]),
		CreationYear:   binary.LittleEndian.Uint16(raw[offCreationYear:]),
		HeaderSize:     binary.LittleEndian.Uint16(raw[offHeaderSize:]),
		OffsetToPoints: binary.LittleEndian.Uint32(raw[offOffsetToPoints:]),
		VLRCount:       binary.LittleEndian.Uint32(raw[offVLRCount:]),
		PointFormat:    raw[offPointFormat],
		RecordLength:   binary.LittleEndian.Uint16(raw[offRecordLength:]),

		PointCountLegacy: binary.LittleEndian.Uint32(raw[OffPointCountLegacy:]),

		ScaleX: readF64(raw, offScaleX),
		ScaleY: readF64(raw, offScaleY),
		ScaleZ: readF64(raw, offScaleZ),
		OffX:   readF64(raw, offOffX),
		OffY:   readF64(raw, offOffY),
		OffZ:   readF64(raw, offOffZ),

		MaxX: readF64(raw, OffBoundingBox),
		MinX: readF64(raw, OffBoundingBox+8),
		MaxY: readF64(raw, OffBoundingBox+16),
		MinY: readF64(raw, OffBoundingBox+24),
		MaxZ: readF64(raw, OffBoundingBox+32),
		MinZ: readF64(raw, OffBoundingBox+40),
	}
	copy(h.ProjectID4[:], raw[offGUID4:offGUID4+8])
	for i := 0; i < legacyReturnSlots; i++ {
		h.ByReturnLegacy[i] = binary.LittleEndian.Uint32(raw[OffByReturnLegacy+4*i:])
	}

	min := MinHeaderSize(h.VersionMajor, h.VersionMinor)
	if len(raw) < min {
		return nil, fmt.Errorf("%w: version %d.%d needs %d header bytes, have %d",
			ErrMalformedHeader, h.VersionMajor, h.VersionMinor, min, len(raw))
	}
	if int(h.HeaderSize) < min {
		return nil, fmt.Errorf("%w: declared header size %d below version %d.%d minimum %d",
			ErrMalformedHeader, h.HeaderSize, h.VersionMajor, h.VersionMinor, min)
	}

	if h.versionAtLeast(1, 3) {
		h.WaveformOffset = binary.LittleEndian.Uint64(raw[offWaveform:])
	}
	if h.versionAtLeast(1, 4) {
		h.EVLRStart = binary.LittleEndian.Uint64(raw[offEVLRStart:])
		h.EVLRCount = binary.LittleEndian.Uint32(raw[offEVLRCount:])
		h.PointCountExtended = binary.LittleEndian.Uint64(raw[OffPointCountExtended:])
		for i := 0; i < extendedReturnSlots; i++ {
			h.ByReturnExtended[i] = binary.LittleEndian.Uint64(raw[OffByReturnExtended+8*i:])
		}
	}

	return h, nil
}

func (h *Header) versionAtLeast(major, minor uint8) bool {
	if h.VersionMajor != major {
		return h.VersionMajor > major
	}
	return h.VersionMinor >= minor
}

// HasExtendedCounters reports whether the 64-bit counter block exists
// (format version 1.4 or later).
func (h *Header) HasExtendedCounters() bool {
	return h.versionAtLeast(1, 4)
}

// IsExtendedFormat reports whether the point format uses the extended
// point encoding (formats 6-10), which forbids nonzero legacy counters.
func (h *Header) IsExtendedFormat() bool {
	return h.PointFormat >= 6
}

// PointCount returns the authoritative declared point count: the extended
// counter when present and populated, otherwise the legacy counter.
func (h *Header) PointCount() uint64 {
	if h.HasExtendedCounters() && h.PointCountExtended != 0 {
		return h.PointCountExtended
	}
	return uint64(h.PointCountLegacy)
}

// GPSTimeIsStandard reports global encoding bit 0: set means GPS time
// values are adjusted standard GPS time, clear means GPS week seconds.
func (h *Header) GPSTimeIsStandard() bool {
	return h.GlobalEncoding&0x1 != 0
}

// Version renders the format version as "1.4".
func (h *Header) Version() string {
	return fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor)
}

// GUID renders the four-part project identifier in canonical UUID form.
func (h *Header) GUID() string {
	var b [16]byte
	binary.BigEndian.PutUint32(b[0:4], h.ProjectID1)
	binary.BigEndian.PutUint16(b[4:6], h.ProjectID2)
	binary.BigEndian.PutUint16(b[6:8], h.ProjectID3)
	copy(b[8:16], h.ProjectID4[:])
	u, err := uuid.FromBytes(b[:])
	if err != nil {
		return ""
	}
	return u.String()
}

func decodeString(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

func readF64(raw []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
}
