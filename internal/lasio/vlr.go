package lasio

import (
	"encoding/binary"
	"strings"
)

const vlrHeaderSize = 54

// VLR is the 54-byte variable-length record header plus its payload,
// recorded between the public header and the point data.
type VLR struct {
	UserID      string
	RecordID    uint16
	Length      uint16
	Description string
	Payload     []byte
}

// Extra-bytes descriptor VLR identity (LAS 1.4 spec, record ID 4).
const (
	specUserID          = "LASF_Spec"
	extraBytesRecordID  = 4
	extraDescriptorSize = 192
)

// Extra-bytes attribute data type codes.
const (
	attrU8  = 1
	attrI8  = 2
	attrU16 = 3
	attrI16 = 4
	attrU32 = 5
	attrI32 = 6
	attrU64 = 7
	attrI64 = 8
	attrF32 = 9
	attrF64 = 10
)

// ExtraAttribute describes one named extra-bytes attribute appended to
// each point record.
type ExtraAttribute struct {
	Name        string
	DataType    uint8
	Description string
}

func (a ExtraAttribute) byteSize() int {
	switch a.DataType {
	case attrU8, attrI8:
		return 1
	case attrU16, attrI16:
		return 2
	case attrU32, attrI32, attrF32:
		return 4
	case attrU64, attrI64, attrF64:
		return 8
	default:
		return 0
	}
}

func decodeVLR(raw []byte) (VLR, int) {
	if len(raw) < vlrHeaderSize {
		return VLR{}, 0
	}
	v := VLR{
		UserID:      trimNUL(raw[2:18]),
		RecordID:    binary.LittleEndian.Uint16(raw[18:]),
		Length:      binary.LittleEndian.Uint16(raw[20:]),
		Description: trimNUL(raw[22:54]),
	}
	end := vlrHeaderSize + int(v.Length)
	if end > len(raw) {
		return VLR{}, 0
	}
	v.Payload = raw[vlrHeaderSize:end]
	return v, end
}

// parseExtraAttributes extracts attribute descriptors from an extra-bytes
// VLR payload. Descriptors are 192 bytes each; deprecated and undefined
// data types are kept with size 0 so per-point decoding stops there.
func parseExtraAttributes(payload []byte) []ExtraAttribute {
	var attrs []ExtraAttribute
	for off := 0; off+extraDescriptorSize <= len(payload); off += extraDescriptorSize {
		d := payload[off : off+extraDescriptorSize]
		attrs = append(attrs, ExtraAttribute{
			DataType:    d[2],
			Name:        trimNUL(d[4:36]),
			Description: trimNUL(d[160:192]),
		})
	}
	return attrs
}

func trimNUL(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
