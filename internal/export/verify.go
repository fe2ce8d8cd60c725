package export

import (
	"regexp"
	"strconv"
	"time"
)

var observedTimestamp = regexp.MustCompile(`(\d{4})\D(\d{1,2})\D(\d{1,2})\D+(\d{1,2}):(\d{1,2})`)

// TimestampMatches reports whether observed shows the same date, hour and minute as expected.
// Zero padding, separators and seconds may differ.
func TimestampMatches(expected time.Time, observed string) bool {
	m := observedTimestamp.FindStringSubmatch(observed)
	if m == nil {
		return false
	}
	fields := make([]int, 5)
	for i := range fields {
		fields[i], _ = strconv.Atoi(m[i+1])
	}
	return fields[0] == expected.Year() &&
		fields[1] == int(expected.Month()) &&
		fields[2] == expected.Day() &&
		fields[3] == expected.Hour() &&
		fields[4] == expected.Minute()
}
