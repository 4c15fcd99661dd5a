package cronexpr

import (
	"time"

	"github.com/vnykmshr/cronflow/pkg/common/validation"
)

// searchYears bounds the search. Feb 29 can be eight years away across a
// non-leap century year (2096 -> 2104).
const searchYears = 9

// Next returns the first instant strictly after from that matches every
// field, with seconds and nanoseconds zeroed, in from's location.
//
// When day-of-month and day-of-week are both restricted a day matches if
// either one does; when only one is restricted it alone decides.
func (e *Expression) Next(from time.Time) (time.Time, error) {
	if err := validation.ValidateNotZeroTime("cronexpr", "from", from); err != nil {
		return time.Time{}, err
	}

	var (
		minutes = e.fields[0]
		hours   = e.fields[1]
		months  = e.fields[3]
	)

	loc := from.Location()
	year, mon, day := from.Date()
	month := int(mon)
	hour, minute := from.Hour(), from.Minute()+1
	limit := year + searchYears

	for year <= limit {
		if !months.full && !months.Has(month) {
			m, ok := months.next(month)
			if !ok {
				year++
				m = months.Min()
			}
			month, day, hour, minute = m, 1, 0, 0
			continue
		}

		if day > daysIn(year, month) {
			month++
			if month > 12 {
				month = 1
				year++
			}
			day, hour, minute = 1, 0, 0
			continue
		}

		if !e.dayMatches(year, month, day) {
			day++
			hour, minute = 0, 0
			continue
		}

		if !hours.full && !hours.Has(hour) {
			h, ok := hours.next(hour)
			if !ok {
				day++
				hour, minute = 0, 0
				continue
			}
			hour, minute = h, 0
		} else if hour > 23 {
			day++
			hour, minute = 0, 0
			continue
		}

		if !minutes.full && !minutes.Has(minute) {
			m, ok := minutes.next(minute)
			if !ok {
				hour++
				minute = 0
				continue
			}
			minute = m
		} else if minute > 59 {
			hour++
			minute = 0
			continue
		}

		t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
		// Wall times skipped or repeated by a DST transition either do not
		// exist or may resolve before from; step past them.
		if t.Hour() != hour || t.Minute() != minute || !t.After(from) {
			minute++
			continue
		}
		return t, nil
	}
	return time.Time{}, ErrNoOccurrence
}

// NextN returns the next n occurrences after from.
func (e *Expression) NextN(from time.Time, n int) ([]time.Time, error) {
	if err := validation.ValidatePositive("cronexpr", "n", n); err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t, err := e.Next(from)
		if err != nil {
			return out, err
		}
		out = append(out, t)
		from = t
	}
	return out, nil
}

// Matches reports whether t, truncated to the minute, satisfies the
// expression.
func (e *Expression) Matches(t time.Time) bool {
	return e.fields[0].Has(t.Minute()) &&
		e.fields[1].Has(t.Hour()) &&
		e.fields[3].Has(int(t.Month())) &&
		e.dayMatches(t.Year(), int(t.Month()), t.Day())
}

func (e *Expression) dayMatches(year, month, day int) bool {
	dom, dow := e.fields[2], e.fields[4]
	if dom.full && dow.full {
		return true
	}

	weekday := int(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Weekday())
	if weekday == 0 {
		weekday = 7
	}

	switch {
	case !dom.full && !dow.full:
		return dom.Has(day) || dow.Has(weekday)
	case !dom.full:
		return dom.Has(day)
	default:
		return dow.Has(weekday)
	}
}

// daysIn returns the length of the month, leap years included.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
