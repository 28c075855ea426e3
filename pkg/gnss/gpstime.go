package gnss

import "time"

// WeekRollover is the modulus of the 10-bit GPS week counter broadcast in the
// legacy navigation message. Receivers with firmware that does not track the
// epoch report dates 1024 weeks (about 19.6 years) too early.
const WeekRollover = 1024

// GPSEpoch is the start of GPS week 0.
var GPSEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

const week = 7 * 24 * time.Hour

// Week returns the full GPS week number of t.
// Partial days count as not elapsed, so 23:59 on a Saturday is still the old week.
func Week(t time.Time) int {
	return floorDiv(elapsedDays(t), 7)
}

// Rollovers returns how many times the 10-bit week counter has wrapped at t.
func Rollovers(t time.Time) int {
	return floorDiv(Week(t), WeekRollover)
}

// FixWeekRollover returns t moved forward by as many 1024-week periods as the
// week counter has wrapped at t. Dates in the first period (1980-1999) are
// returned as is.
func FixWeekRollover(t time.Time) time.Time {
	n := Rollovers(t)
	if n == 0 {
		return t
	}
	return AddWeeks(t, n*WeekRollover)
}

// WeekShift returns the number of weeks to add to observed to land in the GPS
// week of reference.
func WeekShift(observed, reference time.Time) int {
	return Week(reference) - Week(observed)
}

// YearWeekCorrection returns the number of weeks a receiver without rollover
// handling is off by for data recorded at the beginning of year.
func YearWeekCorrection(year int) int {
	w := Week(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	if w < WeekRollover {
		return 0
	}
	return (w / WeekRollover) * WeekRollover
}

// AddWeeks returns t shifted by n GPS weeks.
func AddWeeks(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * week)
}

// elapsedDays returns the number of whole days between the GPS epoch and t.
func elapsedDays(t time.Time) int {
	d := t.UTC().Sub(GPSEpoch)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
