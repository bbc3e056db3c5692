// Package period converts wall-clock time into settlement periods. A period
// is one UTC day counted from Zero.
package period

import (
	"fmt"
	"math"
	"time"
)

const (
	// ZeroUnix is 2025-06-01T00:00:00Z, the start of period 0.
	ZeroUnix int64 = 1748736000
	// SecondsPerPeriod is the length of one settlement period.
	SecondsPerPeriod int64 = 86400

	// daysUnixToZero is the number of days between 1970-01-01 and Zero.
	daysUnixToZero int64 = 20_240
)

// Zero is the instant period 0 begins.
var Zero = time.Unix(ZeroUnix, 0).UTC()

// FromTime returns the period containing t. Instants before Zero map to
// period 0.
func FromTime(t time.Time) (uint16, error) {
	return FromUnix(t.Unix())
}

// FromUnix is FromTime for a unix timestamp.
func FromUnix(ts int64) (uint16, error) {
	if ts < ZeroUnix {
		return 0, nil
	}
	days := (ts - ZeroUnix) / SecondsPerPeriod
	if days > math.MaxUint16 {
		return 0, fmt.Errorf("period: %d days since zero exceeds u16", days)
	}
	return uint16(days), nil
}

// Start returns the first instant of period p.
func Start(p uint16) time.Time {
	return time.Unix(ZeroUnix+int64(p)*SecondsPerPeriod, 0).UTC()
}

// MonthIndex returns the calendar month offset of period p, where June 2025
// is month 0 and July 2025 is month 1.
func MonthIndex(p uint16) uint16 {
	y, m := civilFromDays(daysUnixToZero + int64(p))
	return uint16((y-2025)*12 + (m - 6))
}

// civilFromDays converts days since 1970-01-01 to a proleptic Gregorian
// year and month using integer arithmetic only.
func civilFromDays(z int64) (year, month int64) {
	z += 719_468
	era := z / 146_097
	if z < 0 {
		era = (z - 146_096) / 146_097
	}
	doe := z - era*146_097
	yoe := (doe - doe/1_460 + doe/36_524 - doe/146_096) / 365
	year = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	if mp < 10 {
		month = mp + 3
	} else {
		month = mp - 9
	}
	if month <= 2 {
		year++
	}
	return year, month
}
