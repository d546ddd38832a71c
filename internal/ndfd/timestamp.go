package ndfd

import (
	"fmt"
	"strings"
)

// TimestampKey holds the three derived forms of a forecast issuance time.
// They are used to build server resource paths and output file names.
type TimestampKey struct {
	YearMonth        string // "202006"
	YearMonthDay     string // "20200617"
	YearMonthDayHour string // "2020061712"
}

// DeriveTimestampKey converts a "YYYY-MM-DD HH:MM" string into its YYYYMM,
// YYYYMMDD, and YYYYMMDDHH forms by literal substring concatenation. Only the
// shape of the string is checked, not the calendar.
func DeriveTimestampKey(ts string) (TimestampKey, error) {
	parts := strings.Split(ts, " ")
	if len(parts) != 2 {
		return TimestampKey{}, fmt.Errorf("timestamp %q: want \"YYYY-MM-DD HH:MM\"", ts)
	}
	dateParts := strings.Split(parts[0], "-")
	if len(dateParts) != 3 {
		return TimestampKey{}, fmt.Errorf("timestamp %q: malformed date %q", ts, parts[0])
	}
	timeParts := strings.Split(parts[1], ":")
	if len(timeParts) != 2 {
		return TimestampKey{}, fmt.Errorf("timestamp %q: malformed time %q", ts, parts[1])
	}

	year, month, day := dateParts[0], dateParts[1], dateParts[2]
	hour := timeParts[0]

	return TimestampKey{
		YearMonth:        year + month,
		YearMonthDay:     year + month + day,
		YearMonthDayHour: year + month + day + hour,
	}, nil
}
