package render

import "fmt"

// classNames maps ASPRS standard classification codes to display names.
// Pure static data; the checking core never consults it.
var classNames = map[uint8]string{
	0:  "never classified",
	1:  "unclassified",
	2:  "ground",
	3:  "low vegetation",
	4:  "medium vegetation",
	5:  "high vegetation",
	6:  "building",
	7:  "low point (noise)",
	8:  "model key-point",
	9:  "water",
	10: "rail",
	11: "road surface",
	12: "overlap",
	13: "wire - guard",
	14: "wire - conductor",
	15: "transmission tower",
	16: "wire-structure connector",
	17: "bridge deck",
	18: "high noise",
}

// ClassName returns the display name for a classification code.
func ClassName(code uint8) string {
	if name, ok := classNames[code]; ok {
		return name
	}
	if code >= 64 {
		return fmt.Sprintf("user defined (%d)", code)
	}
	return fmt.Sprintf("reserved (%d)", code)
}
