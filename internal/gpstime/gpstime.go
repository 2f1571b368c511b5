// Package gpstime converts between GPS week time and adjusted standard
// GPS time, the two timestamp encodings a LAS file may carry depending on
// its global encoding bit 0.
package gpstime

import "time"

// Epoch is the GPS time origin, 1980-01-06T00:00:00Z.
var Epoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// SecondsPerWeek is the span of one GPS week.
const SecondsPerWeek = 7 * 24 * 3600

// StandardAdjustment is subtracted from standard GPS time to form
// adjusted standard GPS time, keeping values in float64-friendly range.
const StandardAdjustment = 1.0e9

// FromWeek converts a GPS week number and seconds-of-week into adjusted
// standard GPS time.
func FromWeek(week int, sow float64) float64 {
	return float64(week)*SecondsPerWeek + sow - StandardAdjustment
}

// Week derives the GPS week number and seconds-of-week from an adjusted
// standard GPS time.
func Week(adjusted float64) (week int, sow float64) {
	total := adjusted + StandardAdjustment
	week = int(total / SecondsPerWeek)
	sow = total - float64(week)*SecondsPerWeek
	return week, sow
}

// LooksLikeWeekSeconds reports whether a GPS time value falls in the
// seconds-of-week range, the signature of week-time encoding.
func LooksLikeWeekSeconds(t float64) bool {
	return t >= 0 && t < SecondsPerWeek
}

// ToTime converts an adjusted standard GPS time to wall-clock time,
// ignoring leap seconds.
func ToTime(adjusted float64) time.Time {
	return Epoch.Add(time.Duration((adjusted + StandardAdjustment) * float64(time.Second)))
}
