package rinex

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseEpoch parses a RINEX epoch given as whitespace separated fields
// "YYYY MM DD hh mm ss.fffffff", as found in header records, epoch records
// and the metadata of gfzrnx. Two-digit years are accepted (80-99: 19xx).
// The seconds may have any number of fractional digits, everything beyond
// nanoseconds is truncated.
func ParseEpoch(s string) (time.Time, error) {
	f := strings.Fields(s)
	if len(f) < 6 {
		return time.Time{}, fmt.Errorf("parse epoch %q: need 6 fields, got %d", s, len(f))
	}

	var v [5]int
	for i := range v {
		n, err := strconv.Atoi(f[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("parse epoch %q: %v", s, err)
		}
		v[i] = n
	}

	year, mon, day, hr, min := v[0], v[1], v[2], v[3], v[4]
	if len(f[0]) <= 2 {
		year = fullYear(year)
	}
	if mon < 1 || mon > 12 || day < 1 || day > 31 || hr < 0 || hr > 23 || min < 0 || min > 59 {
		return time.Time{}, fmt.Errorf("parse epoch %q: field out of range", s)
	}

	sec, nsec, err := parseSeconds(f[5])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse epoch %q: %v", s, err)
	}

	return time.Date(year, time.Month(mon), day, hr, min, sec, nsec, time.UTC), nil
}

// FormatEpoch formats t like in the TIME OF FIRST OBS header record: 5I6,F13.7.
func FormatEpoch(t time.Time) string {
	sec := float64(t.Second()) + float64(t.Nanosecond())/1e9
	return fmt.Sprintf("%6d%6d%6d%6d%6d%13.7f", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), sec)
}

// withDate returns t with the calendar date of d and t's time of day.
func withDate(t, d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func parseSeconds(s string) (sec, nsec int, err error) {
	intPart, frac, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	sec, err = strconv.Atoi(intPart)
	if err != nil {
		return 0, 0, fmt.Errorf("parse seconds %q: %v", s, err)
	}
	if sec < 0 || sec > 60 {
		return 0, 0, fmt.Errorf("seconds out of range: %q", s)
	}

	if frac == "" {
		return sec, 0, nil
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	nsec, err = strconv.Atoi(frac)
	if err != nil {
		return 0, 0, fmt.Errorf("parse seconds %q: %v", s, err)
	}
	return sec, nsec, nil
}

func fullYear(yy int) int {
	if yy >= 80 {
		return 1900 + yy
	}
	return 2000 + yy
}
