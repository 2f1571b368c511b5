// Package lastest synthesizes small LAS files for tests: a truthful
// header derived from the point list, optional VLRs and extra-bytes
// attributes, and encoded point records. Tests that need a lying header
// corrupt the returned bytes at the lasfmt offsets afterward.
package lastest

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/lasio"
)

// ExtraAttr declares one extra-bytes attribute for the fixture.
type ExtraAttr struct {
	Name     string
	DataType uint8 // 1-10 per the extra-bytes VLR encoding
}

// EVLR declares one extended VLR to append after the point data.
// Only meaningful for version 1.4 fixtures.
type EVLR struct {
	UserID   string
	RecordID uint16
	Payload  []byte
}

// Spec describes the file to synthesize.
type Spec struct {
	VersionMinor   uint8 // defaults to 2
	PointFormat    uint8
	GlobalEncoding uint16
	Scale          [3]float64 // defaults to 0.01 each
	Offset         [3]float64
	ExtraAttrs     []ExtraAttr
	Points         []lasio.Point
	EVLRs          []EVLR
}

var attrSizes = map[uint8]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 4, 6: 4, 7: 8, 8: 8, 9: 4, 10: 8}

var baseSizes = map[uint8]int{
	0: 20, 1: 28, 2: 26, 3: 34, 4: 57, 5: 63,
	6: 30, 7: 36, 8: 38, 9: 59, 10: 67,
}

// Build returns the complete file bytes with a header that agrees with
// the point data.
func Build(s Spec) []byte {
	if s.VersionMinor == 0 {
		s.VersionMinor = 2
	}
	for i := range s.Scale {
		if s.Scale[i] == 0 {
			s.Scale[i] = 0.01
		}
	}

	headerSize := lasfmt.MinHeaderSize(1, s.VersionMinor)
	extraSize := 0
	for _, a := range s.ExtraAttrs {
		extraSize += attrSizes[a.DataType]
	}
	recLen := baseSizes[s.PointFormat] + extraSize

	var vlrBytes []byte
	vlrCount := 0
	if len(s.ExtraAttrs) > 0 {
		vlrBytes = extraBytesVLR(s.ExtraAttrs)
		vlrCount = 1
	}
	offsetToPoints := headerSize + len(vlrBytes)

	hdr := make([]byte, headerSize)
	copy(hdr[0:4], lasfmt.Signature)
	binary.LittleEndian.PutUint16(hdr[6:], s.GlobalEncoding)
	hdr[24] = 1
	hdr[25] = s.VersionMinor
	copy(hdr[26:], "lastest")
	copy(hdr[58:], "lascheck fixtures")
	binary.LittleEndian.PutUint16(hdr[94:], uint16(headerSize))
	binary.LittleEndian.PutUint32(hdr[96:], uint32(offsetToPoints))
	binary.LittleEndian.PutUint32(hdr[100:], uint32(vlrCount))
	hdr[104] = s.PointFormat
	binary.LittleEndian.PutUint16(hdr[105:], uint16(recLen))

	putF64(hdr, 131, s.Scale[0])
	putF64(hdr, 139, s.Scale[1])
	putF64(hdr, 147, s.Scale[2])
	putF64(hdr, 155, s.Offset[0])
	putF64(hdr, 163, s.Offset[1])
	putF64(hdr, 171, s.Offset[2])

	fillCounts(hdr, s)
	fillBounds(hdr, s)

	out := append(hdr, vlrBytes...)
	for i := range s.Points {
		out = append(out, encodePoint(&s.Points[i], s.PointFormat, s.ExtraAttrs, recLen)...)
	}
	if s.VersionMinor >= 4 && len(s.EVLRs) > 0 {
		binary.LittleEndian.PutUint64(out[235:], uint64(len(out)))
		binary.LittleEndian.PutUint32(out[243:], uint32(len(s.EVLRs)))
		for i := range s.EVLRs {
			out = append(out, encodeEVLR(&s.EVLRs[i])...)
		}
	}
	return out
}

func encodeEVLR(e *EVLR) []byte {
	rec := make([]byte, 60+len(e.Payload))
	copy(rec[2:18], e.UserID)
	binary.LittleEndian.PutUint16(rec[18:], e.RecordID)
	binary.LittleEndian.PutUint64(rec[20:], uint64(len(e.Payload)))
	copy(rec[60:], e.Payload)
	return rec
}

// WriteFile builds the fixture and writes it to path.
func WriteFile(path string, s Spec) error {
	return os.WriteFile(path, Build(s), 0o644)
}

func fillCounts(hdr []byte, s Spec) {
	n := uint64(len(s.Points))
	var byReturn [15]uint64
	for i := range s.Points {
		r := int(s.Points[i].ReturnNumber)
		if r >= 1 && r <= 15 {
			byReturn[r-1]++
		}
	}

	if s.PointFormat < 6 {
		binary.LittleEndian.PutUint32(hdr[lasfmt.OffPointCountLegacy:], uint32(n))
		for i := 0; i < 5; i++ {
			binary.LittleEndian.PutUint32(hdr[lasfmt.OffByReturnLegacy+4*i:], uint32(byReturn[i]))
		}
	}
	if s.VersionMinor >= 4 {
		binary.LittleEndian.PutUint64(hdr[lasfmt.OffPointCountExtended:], n)
		for i := 0; i < 15; i++ {
			binary.LittleEndian.PutUint64(hdr[lasfmt.OffByReturnExtended+8*i:], byReturn[i])
		}
	}
}

func fillBounds(hdr []byte, s Spec) {
	if len(s.Points) == 0 {
		return
	}
	minI := [3]int32{s.Points[0].X, s.Points[0].Y, s.Points[0].Z}
	maxI := minI
	for i := range s.Points {
		for a, v := range [3]int32{s.Points[i].X, s.Points[i].Y, s.Points[i].Z} {
			if v < minI[a] {
				minI[a] = v
			}
			if v > maxI[a] {
				maxI[a] = v
			}
		}
	}
	for a := 0; a < 3; a++ {
		max := s.Offset[a] + s.Scale[a]*float64(maxI[a])
		min := s.Offset[a] + s.Scale[a]*float64(minI[a])
		putF64(hdr, lasfmt.OffBoundingBox+16*a, max)
		putF64(hdr, lasfmt.OffBoundingBox+16*a+8, min)
	}
}

func encodePoint(p *lasio.Point, format uint8, attrs []ExtraAttr, recLen int) []byte {
	raw := make([]byte, recLen)
	binary.LittleEndian.PutUint32(raw[0:], uint32(p.X))
	binary.LittleEndian.PutUint32(raw[4:], uint32(p.Y))
	binary.LittleEndian.PutUint32(raw[8:], uint32(p.Z))
	binary.LittleEndian.PutUint16(raw[12:], p.Intensity)

	if format >= 6 {
		raw[14] = p.ReturnNumber&0x0f | p.NumberOfReturns<<4
		var flags uint8
		if p.Synthetic {
			flags |= 0x01
		}
		if p.KeyPoint {
			flags |= 0x02
		}
		if p.Withheld {
			flags |= 0x04
		}
		if p.Overlap {
			flags |= 0x08
		}
		flags |= (p.ScannerChannel & 0x03) << 4
		raw[15] = flags
		raw[16] = p.Classification
		raw[17] = p.UserData
		binary.LittleEndian.PutUint16(raw[18:], uint16(p.ScanAngle))
		binary.LittleEndian.PutUint16(raw[20:], p.PointSourceID)
		putF64(raw, 22, p.GPSTime)
	} else {
		raw[14] = p.ReturnNumber&0x07 | (p.NumberOfReturns&0x07)<<3
		class := p.Classification & 0x1f
		if p.Synthetic {
			class |= 0x20
		}
		if p.KeyPoint {
			class |= 0x40
		}
		if p.Withheld {
			class |= 0x80
		}
		raw[15] = class
		raw[16] = uint8(int8(p.ScanAngle))
		raw[17] = p.UserData
		binary.LittleEndian.PutUint16(raw[18:], p.PointSourceID)
	}

	switch format {
	case 1:
		putF64(raw, 20, p.GPSTime)
	case 2:
		putRGB(raw, 20, p)
	case 3:
		putF64(raw, 20, p.GPSTime)
		putRGB(raw, 28, p)
	case 4:
		putF64(raw, 20, p.GPSTime)
		putWave(raw, 28, p)
	case 5:
		putF64(raw, 20, p.GPSTime)
		putRGB(raw, 28, p)
		putWave(raw, 34, p)
	case 7:
		putRGB(raw, 30, p)
	case 8:
		putRGB(raw, 30, p)
		binary.LittleEndian.PutUint16(raw[36:], p.NIR)
	case 9:
		putWave(raw, 30, p)
	case 10:
		putRGB(raw, 30, p)
		binary.LittleEndian.PutUint16(raw[36:], p.NIR)
		putWave(raw, 38, p)
	}

	off := baseSizes[format]
	for i, a := range attrs {
		var v float64
		if i < len(p.Extra) {
			v = p.Extra[i]
		}
		putAttr(raw[off:], a.DataType, v)
		off += attrSizes[a.DataType]
	}

	return raw
}

func putWave(raw []byte, off int, p *lasio.Point) {
	raw[off] = p.WaveDescriptor
	binary.LittleEndian.PutUint64(raw[off+1:], p.WaveOffset)
	binary.LittleEndian.PutUint32(raw[off+9:], p.WaveSize)
	binary.LittleEndian.PutUint32(raw[off+13:], math.Float32bits(p.WaveReturnPoint))
}

func putRGB(raw []byte, off int, p *lasio.Point) {
	binary.LittleEndian.PutUint16(raw[off:], p.Red)
	binary.LittleEndian.PutUint16(raw[off+2:], p.Green)
	binary.LittleEndian.PutUint16(raw[off+4:], p.Blue)
}

func putAttr(raw []byte, dataType uint8, v float64) {
	switch dataType {
	case 1:
		raw[0] = uint8(v)
	case 2:
		raw[0] = uint8(int8(v))
	case 3:
		binary.LittleEndian.PutUint16(raw, uint16(v))
	case 4:
		binary.LittleEndian.PutUint16(raw, uint16(int16(v)))
	case 5:
		binary.LittleEndian.PutUint32(raw, uint32(v))
	case 6:
		binary.LittleEndian.PutUint32(raw, uint32(int32(v)))
	case 7:
		binary.LittleEndian.PutUint64(raw, uint64(v))
	case 8:
		binary.LittleEndian.PutUint64(raw, uint64(int64(v)))
	case 9:
		binary.LittleEndian.PutUint32(raw, math.Float32bits(float32(v)))
	case 10:
		putF64(raw, 0, v)
	}
}

// extraBytesVLR encodes the LASF_Spec record-4 VLR describing attrs.
func extraBytesVLR(attrs []ExtraAttr) []byte {
	payload := make([]byte, 192*len(attrs))
	for i, a := range attrs {
		d := payload[192*i:]
		d[2] = a.DataType
		copy(d[4:36], a.Name)
	}

	vlr := make([]byte, 54+len(payload))
	copy(vlr[2:18], "LASF_Spec")
	binary.LittleEndian.PutUint16(vlr[18:], 4)
	binary.LittleEndian.PutUint16(vlr[20:], uint16(len(payload)))
	copy(vlr[22:54], "extra bytes")
	copy(vlr[54:], payload)
	return vlr
}

func putF64(b []byte, off int, v float64) {
	binary.LittleEndian.PutUint64(b[off:], math.Float64bits(v))
}
