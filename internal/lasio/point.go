package lasio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Point is one decoded point record. Coordinates stay in the file's
// quantized integer domain; callers apply the header scale/offset when
// they need real-world values.
type Point struct {
	X, Y, Z   int32
	Intensity uint16

	ReturnNumber    uint8
	NumberOfReturns uint8
	ScanDirection   bool
	EdgeOfFlight    bool

	Classification uint8
	Synthetic      bool
	KeyPoint       bool
	Withheld       bool
	Overlap        bool // extended formats only

	ScannerChannel uint8 // extended formats only
	ScanAngle      int16 // degrees for formats 0-5, 0.006-degree units for 6-10
	UserData       uint8
	PointSourceID  uint16

	// Extended reports whether the record uses the extended point
	// encoding (formats 6-10) with 4-bit return fields and the overlap
	// flag dimension.
	Extended bool

	HasGPSTime bool
	GPSTime    float64

	HasRGB           bool
	Red, Green, Blue uint16

	HasNIR bool
	NIR    uint16

	HasWave         bool
	WaveDescriptor  uint8
	WaveOffset      uint64
	WaveSize        uint32
	WaveReturnPoint float32

	// Extra holds decoded extra-bytes attribute values, indexed per the
	// file's extra-bytes VLR descriptors. Missing when the file carries
	// no extra-bytes payload.
	Extra []float64
}

// baseRecordSize is the standard record length per point data format,
// before any extra bytes.
var baseRecordSize = map[uint8]int{
	0: 20, 1: 28, 2: 26, 3: 34, 4: 57, 5: 63,
	6: 30, 7: 36, 8: 38, 9: 59, 10: 67,
}

// decodePoint parses one raw record of the given format into p.
func decodePoint(raw []byte, format uint8, attrs []ExtraAttribute, p *Point) {
	*p = Point{
		X:         int32(binary.LittleEndian.Uint32(raw[0:])),
		Y:         int32(binary.LittleEndian.Uint32(raw[4:])),
		Z:         int32(binary.LittleEndian.Uint32(raw[8:])),
		Intensity: binary.LittleEndian.Uint16(raw[12:]),
	}

	if format >= 6 {
		decodeExtendedCore(raw, p)
	} else {
		decodeLegacyCore(raw, p)
	}

	base := baseRecordSize[format]
	switch format {
	case 1:
		p.setGPS(raw[20:])
	case 2:
		p.setRGB(raw[20:])
	case 3:
		p.setGPS(raw[20:])
		p.setRGB(raw[28:])
	case 4:
		p.setGPS(raw[20:])
		p.setWave(raw[28:])
	case 5:
		p.setGPS(raw[20:])
		p.setRGB(raw[28:])
		p.setWave(raw[34:])
	case 7:
		p.setRGB(raw[30:])
	case 8:
		p.setRGB(raw[30:])
		p.setNIR(raw[36:])
	case 9:
		p.setWave(raw[30:])
	case 10:
		p.setRGB(raw[30:])
		p.setNIR(raw[36:])
		p.setWave(raw[38:])
	}

	if len(attrs) > 0 && len(raw) > base {
		p.Extra = decodeExtra(raw[base:], attrs)
	}
}

// decodeLegacyCore handles the format 0-5 shared tail: 3-bit return
// fields, combined classification byte, signed 8-bit scan angle.
func decodeLegacyCore(raw []byte, p *Point) {
	flags := raw[14]
	p.ReturnNumber = flags & 0x07
	p.NumberOfReturns = (flags >> 3) & 0x07
	p.ScanDirection = flags&0x40 != 0
	p.EdgeOfFlight = flags&0x80 != 0

	class := raw[15]
	p.Classification = class & 0x1f
	p.Synthetic = class&0x20 != 0
	p.KeyPoint = class&0x40 != 0
	p.Withheld = class&0x80 != 0

	p.ScanAngle = int16(int8(raw[16]))
	p.UserData = raw[17]
	p.PointSourceID = binary.LittleEndian.Uint16(raw[18:])
	p.HasGPSTime = false
}

// decodeExtendedCore handles the format 6-10 shared tail: 4-bit return
// fields, separate flag byte with overlap and scanner channel, full
// classification byte, 16-bit scan angle, mandatory GPS time.
func decodeExtendedCore(raw []byte, p *Point) {
	p.Extended = true

	returns := raw[14]
	p.ReturnNumber = returns & 0x0f
	p.NumberOfReturns = (returns >> 4) & 0x0f

	flags := raw[15]
	p.Synthetic = flags&0x01 != 0
	p.KeyPoint = flags&0x02 != 0
	p.Withheld = flags&0x04 != 0
	p.Overlap = flags&0x08 != 0
	p.ScannerChannel = (flags >> 4) & 0x03
	p.ScanDirection = flags&0x40 != 0
	p.EdgeOfFlight = flags&0x80 != 0

	p.Classification = raw[16]
	p.UserData = raw[17]
	p.ScanAngle = int16(binary.LittleEndian.Uint16(raw[18:]))
	p.PointSourceID = binary.LittleEndian.Uint16(raw[20:])
	p.setGPS(raw[22:])
}

func (p *Point) setGPS(raw []byte) {
	p.HasGPSTime = true
	p.GPSTime = math.Float64frombits(binary.LittleEndian.Uint64(raw))
}

func (p *Point) setRGB(raw []byte) {
	p.HasRGB = true
	p.Red = binary.LittleEndian.Uint16(raw[0:])
	p.Green = binary.LittleEndian.Uint16(raw[2:])
	p.Blue = binary.LittleEndian.Uint16(raw[4:])
}

func (p *Point) setNIR(raw []byte) {
	p.HasNIR = true
	p.NIR = binary.LittleEndian.Uint16(raw)
}

func (p *Point) setWave(raw []byte) {
	p.HasWave = true
	p.WaveDescriptor = raw[0]
	p.WaveOffset = binary.LittleEndian.Uint64(raw[1:])
	p.WaveSize = binary.LittleEndian.Uint32(raw[9:])
	p.WaveReturnPoint = math.Float32frombits(binary.LittleEndian.Uint32(raw[13:]))
}

// decodeExtra parses the trailing extra-bytes payload into one float64
// per descriptor. Values are raw, unscaled.
func decodeExtra(raw []byte, attrs []ExtraAttribute) []float64 {
	vals := make([]float64, 0, len(attrs))
	off := 0
	for _, a := range attrs {
		size := a.byteSize()
		if size == 0 || off+size > len(raw) {
			break
		}
		vals = append(vals, decodeNumeric(raw[off:], a.DataType))
		off += size
	}
	return vals
}

func decodeNumeric(raw []byte, dataType uint8) float64 {
	switch dataType {
	case attrU8:
		return float64(raw[0])
	case attrI8:
		return float64(int8(raw[0]))
	case attrU16:
		return float64(binary.LittleEndian.Uint16(raw))
	case attrI16:
		return float64(int16(binary.LittleEndian.Uint16(raw)))
	case attrU32:
		return float64(binary.LittleEndian.Uint32(raw))
	case attrI32:
		return float64(int32(binary.LittleEndian.Uint32(raw)))
	case attrU64:
		return float64(binary.LittleEndian.Uint64(raw))
	case attrI64:
		return float64(int64(binary.LittleEndian.Uint64(raw)))
	case attrF32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
	case attrF64:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw))
	default:
		return 0
	}
}

func (p *Point) String() string {
	return fmt.Sprintf("point{%d %d %d ret %d/%d class %d}",
		p.X, p.Y, p.Z, p.ReturnNumber, p.NumberOfReturns, p.Classification)
}
