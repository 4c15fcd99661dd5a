package cronexpr

import (
	"math/bits"
	"strconv"
	"strings"
)

// Bounds describes the domain of one cron field.
type Bounds struct {
	Name string
	Low  int
	High int

	// names maps Low+i to names[i]; only month and day-of-week have them.
	names []string
}

var (
	// Minutes is the minute field domain, 0-59.
	Minutes = Bounds{Name: "minute", Low: 0, High: 59}

	// Hours is the hour field domain, 0-23.
	Hours = Bounds{Name: "hour", Low: 0, High: 23}

	// DaysOfMonth is the day-of-month field domain, 1-31.
	DaysOfMonth = Bounds{Name: "day-of-month", Low: 1, High: 31}

	// Months is the month field domain, 1-12. Accepts month names.
	Months = Bounds{Name: "month", Low: 1, High: 12, names: []string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	}}

	// DaysOfWeek is the day-of-week field domain, 0-7, where both 0 and 7
	// are Sunday. Accepts weekday names.
	DaysOfWeek = Bounds{Name: "day-of-week", Low: 0, High: 7, names: []string{
		"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	}}
)

// Field is the set of values one cron field matches. Values are kept as a
// bitmask; every domain fits in 64 bits.
type Field struct {
	bits   uint64
	full   bool
	bounds Bounds
}

// ParseField parses a comma separated list of cron entries against the
// given domain. Each entry is "*", a value, or a "begin-end" range, where
// "*" and ranges may carry a "/step" suffix.
func ParseField(text string, b Bounds) (Field, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Field{}, &ParseError{Expr: text, Field: b.Name, Reason: "empty field"}
	}

	var set uint64
	for _, entry := range strings.Split(text, ",") {
		v, err := parseEntry(entry, b)
		if err != nil {
			return Field{}, err
		}
		set |= v
	}
	return newField(set, b), nil
}

func newField(set uint64, b Bounds) Field {
	return Field{bits: set, full: set&span(b.Low, b.High) == span(b.Low, b.High), bounds: b}
}

func parseEntry(entry string, b Bounds) (uint64, error) {
	if entry == "" {
		return 0, &ParseError{Expr: entry, Field: b.Name, Reason: "empty entry"}
	}

	rangePart, stepPart, hasStep := strings.Cut(entry, "/")
	step := 1
	if hasStep {
		n, err := strconv.Atoi(stepPart)
		if err != nil || n < 1 {
			return 0, &ParseError{Expr: entry, Field: b.Name, Reason: "step must be a positive integer"}
		}
		step = n
	}

	var begin, end int
	switch {
	case rangePart == "*":
		begin, end = b.Low, b.High

	case strings.Contains(rangePart, "-"):
		lo, hi, _ := strings.Cut(rangePart, "-")
		var err error
		if begin, err = resolve(lo, entry, b); err != nil {
			return 0, err
		}
		if end, err = resolve(hi, entry, b); err != nil {
			return 0, err
		}
		if begin < b.Low || begin >= b.High || end <= b.Low || end > b.High || begin > end {
			return 0, &OutOfBoundsError{Field: b.Name, Entry: entry, Low: b.Low, High: b.High}
		}

	default:
		if hasStep {
			return 0, &ParseError{Expr: entry, Field: b.Name, Reason: "step requires a range or *"}
		}
		v, err := resolve(rangePart, entry, b)
		if err != nil {
			return 0, err
		}
		if v < b.Low || v > b.High {
			return 0, &OutOfBoundsError{Field: b.Name, Entry: entry, Low: b.Low, High: b.High}
		}
		return 1 << uint(v), nil
	}

	var set uint64
	for v := begin; v <= end; v += step {
		set |= 1 << uint(v)
	}
	return set, nil
}

// resolve turns a single token into its integer value. Names are only
// accepted by domains that carry a name table.
func resolve(tok, entry string, b Bounds) (int, error) {
	if tok == "" {
		return 0, &ParseError{Expr: entry, Field: b.Name, Reason: "missing value"}
	}
	if isDigits(tok) {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return 0, &ParseError{Expr: entry, Field: b.Name, Reason: err.Error()}
		}
		return v, nil
	}
	if b.names == nil {
		return 0, &ParseError{Expr: entry, Field: b.Name, Reason: "names are not allowed here"}
	}
	if v, ok := lookupName(tok, b); ok {
		return v, nil
	}
	return 0, &ParseError{Expr: entry, Field: b.Name, Reason: "unknown name " + strconv.Quote(tok)}
}

// lookupName matches on the first two letters against the name table, in
// table order. Longer tokens must also be a prefix of the full name, so
// "may" and "jul" pick the right month while "ma" and "ju" stay March and June.
func lookupName(tok string, b Bounds) (int, bool) {
	tok = strings.ToLower(tok)
	if len(tok) < 2 {
		return 0, false
	}
	for i, name := range b.names {
		if name[:2] == tok[:2] && strings.HasPrefix(name, tok) {
			return b.Low + i, true
		}
	}
	return 0, false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// span returns a mask with bits lo..hi set.
func span(lo, hi int) uint64 {
	if hi >= 63 {
		return ^uint64(0) << uint(lo)
	}
	return (uint64(1)<<uint(hi+1) - 1) &^ (uint64(1)<<uint(lo) - 1)
}

// Has reports whether v is in the set.
func (f Field) Has(v int) bool {
	return v >= 0 && v < 64 && f.bits&(1<<uint(v)) != 0
}

// Full reports whether the set spans the whole domain.
func (f Field) Full() bool { return f.full }

// Bounds returns the field domain.
func (f Field) Bounds() Bounds { return f.bounds }

// Len returns the number of values in the set.
func (f Field) Len() int { return bits.OnesCount64(f.bits) }

// Min returns the smallest value in the set.
func (f Field) Min() int { return bits.TrailingZeros64(f.bits) }

// Values returns the set in ascending order.
func (f Field) Values() []int {
	out := make([]int, 0, f.Len())
	for set := f.bits; set != 0; set &= set - 1 {
		out = append(out, bits.TrailingZeros64(set))
	}
	return out
}

// next returns the smallest value >= v, if any.
func (f Field) next(v int) (int, bool) {
	if v > f.bounds.High {
		return 0, false
	}
	if v < 0 {
		v = 0
	}
	rest := f.bits &^ (uint64(1)<<uint(v) - 1)
	if rest == 0 {
		return 0, false
	}
	return bits.TrailingZeros64(rest), true
}

// String renders the set compactly, collapsing runs into ranges.
func (f Field) String() string {
	if f.full {
		return "*"
	}
	vals := f.Values()
	parts := make([]string, 0, len(vals))
	for i := 0; i < len(vals); {
		j := i
		for j+1 < len(vals) && vals[j+1] == vals[j]+1 {
			j++
		}
		switch {
		case j == i:
			parts = append(parts, strconv.Itoa(vals[i]))
		case j == i+1:
			parts = append(parts, strconv.Itoa(vals[i]), strconv.Itoa(vals[j]))
		default:
			parts = append(parts, strconv.Itoa(vals[i])+"-"+strconv.Itoa(vals[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}
