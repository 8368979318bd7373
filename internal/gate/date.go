package gate

import (
	"strconv"
	"strings"
	"time"
)

// EndingDateLayout documents the accepted format; parsing is done by hand
// because the meridiem may be in any case.
const EndingDateLayout = "DD/MM/YYYY, HH:MM:SS am/pm"

// ParseEndingDate reads "DD/MM/YYYY, HH:MM:SS am/pm" in loc. 12 am is hour
// 0, every pm hour below 12 gains 12 and 24-hour values such as 13 pass
// through unchanged.
func ParseEndingDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	parts := strings.Split(strings.TrimSpace(raw), ", ")
	if len(parts) != 2 {
		return time.Time{}, &MalformedDateError{Value: raw, Reason: "expected date and time separated by \", \""}
	}

	dateFields := strings.Split(parts[0], "/")
	if len(dateFields) != 3 {
		return time.Time{}, &MalformedDateError{Value: raw, Reason: "expected DD/MM/YYYY"}
	}
	timeAndPeriod := strings.Fields(parts[1])
	if len(timeAndPeriod) != 2 {
		return time.Time{}, &MalformedDateError{Value: raw, Reason: "expected HH:MM:SS am/pm"}
	}
	clockFields := strings.Split(timeAndPeriod[0], ":")
	if len(clockFields) != 3 {
		return time.Time{}, &MalformedDateError{Value: raw, Reason: "expected HH:MM:SS"}
	}

	nums, err := atoiAll(append(dateFields, clockFields...))
	if err != nil {
		return time.Time{}, &MalformedDateError{Value: raw, Reason: "non-numeric field"}
	}
	day, month, year := nums[0], nums[1], nums[2]
	hour, minute, second := nums[3], nums[4], nums[5]

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, &MalformedDateError{Value: raw, Reason: "field out of range"}
	}

	switch strings.ToLower(timeAndPeriod[1]) {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 12 {
			hour += 12
		}
	default:
		return time.Time{}, &MalformedDateError{Value: raw, Reason: "expected am or pm"}
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), nil
}

func atoiAll(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, strconv.ErrRange
		}
		out[i] = n
	}
	return out, nil
}

// FormatEndingDate writes t in the record format, used to build fixtures and
// records relative to now.
func FormatEndingDate(t time.Time) string {
	hour := t.Hour()
	period := "am"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		period = "pm"
	case hour > 12:
		hour -= 12
		period = "pm"
	}
	return t.Format("02/01/2006") + ", " + pad2(hour) + t.Format(":04:05") + " " + period
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
