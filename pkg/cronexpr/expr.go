package cronexpr

import (
	"strings"
)

// shortcuts expands the supported @keywords.
var shortcuts = map[string]string{
	"yearly":   "0 0 1 1 *",
	"annually": "0 0 1 1 *",
	"monthly":  "0 0 1 * *",
	"weekly":   "0 0 * * 0",
	"daily":    "0 0 * * *",
	"midnight": "0 0 * * *",
	"hourly":   "0 * * * *",
}

const fieldCount = 5

var fieldBounds = [fieldCount]Bounds{Minutes, Hours, DaysOfMonth, Months, DaysOfWeek}

// Expression is a parsed five-field cron schedule.
type Expression struct {
	text   string
	fields [fieldCount]Field
}

// Parse parses a cron expression or an @shortcut. Missing trailing fields
// default to "*", so "30" means minute 30 of every hour.
func Parse(text string) (*Expression, error) {
	s := strings.TrimSpace(text)

	var parts []string
	if strings.HasPrefix(s, "@") {
		expanded, ok := shortcuts[strings.ToLower(s[1:])]
		if !ok {
			return nil, &ParseError{Expr: text, Reason: "unknown shortcut"}
		}
		parts = strings.Fields(expanded)
	} else {
		parts = strings.Fields(s)
		if len(parts) > fieldCount {
			return nil, &ParseError{Expr: text, Reason: "too many fields"}
		}
		for len(parts) < fieldCount {
			parts = append(parts, "*")
		}
	}

	e := &Expression{text: text}
	for i, part := range parts {
		f, err := ParseField(part, fieldBounds[i])
		if err != nil {
			return nil, err
		}
		e.fields[i] = f
	}

	// Sunday is both 0 and 7; keep both spellings so matching never has to
	// care which one the author used.
	dow := &e.fields[4]
	if dow.Has(0) || dow.Has(7) {
		*dow = newField(dow.bits|1|1<<7, DaysOfWeek)
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for package level
// schedule literals.
func MustParse(text string) *Expression {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

// Minute returns the minute field.
func (e *Expression) Minute() Field { return e.fields[0] }

// Hour returns the hour field.
func (e *Expression) Hour() Field { return e.fields[1] }

// DayOfMonth returns the day-of-month field.
func (e *Expression) DayOfMonth() Field { return e.fields[2] }

// Month returns the month field.
func (e *Expression) Month() Field { return e.fields[3] }

// DayOfWeek returns the day-of-week field, with 0 and 7 both present
// whenever Sunday is.
func (e *Expression) DayOfWeek() Field { return e.fields[4] }

// Text returns the expression as it was given to Parse.
func (e *Expression) Text() string { return e.text }

// String returns the canonical five-field form.
func (e *Expression) String() string {
	parts := make([]string, fieldCount)
	for i, f := range e.fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, " ")
}

// Equal reports whether both expressions match exactly the same values.
func (e *Expression) Equal(other *Expression) bool {
	if e == nil || other == nil {
		return e == other
	}
	for i := range e.fields {
		if e.fields[i].bits != other.fields[i].bits {
			return false
		}
	}
	return true
}
