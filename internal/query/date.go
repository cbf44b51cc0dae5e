package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var datePattern = regexp.MustCompile(`(\d{2,4})-(\d{1,2})-(\d{1,2})`)

// Date is a (year, month, day) tuple. Dates compare field by field, so no calendar
// validation is applied.
type Date struct {
	Year  int
	Month int
	Day   int
}

// ParseDate parses a "Y-M-D" bound.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: date %q must be Y-M-D", ErrInvalidFilter, s)
	}

	var fields [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Date{}, fmt.Errorf("%w: date %q must be Y-M-D", ErrInvalidFilter, s)
		}
		fields[i] = v
	}
	return Date{Year: fields[0], Month: fields[1], Day: fields[2]}, nil
}

// ExtractDate finds the first Y-M-D looking substring in url.
func ExtractDate(url string) (Date, bool) {
	m := datePattern.FindStringSubmatch(url)
	if m == nil {
		return Date{}, false
	}
	// the pattern only matches digits, so Atoi cannot fail here
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	return Date{Year: y, Month: mo, Day: d}, true
}

// Compare returns -1, 0 or 1 as d sorts before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(d.Month, o.Month)
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) String() string {
	return fmt.Sprintf("%d-%02d-%02d", d.Year, d.Month, d.Day)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
