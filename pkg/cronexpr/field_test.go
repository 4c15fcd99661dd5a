package cronexpr

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		bounds Bounds
		want   []int
	}{
		{"star step", "*/5", Minutes, []int{0, 5, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55}},
		{"range", "1-5", Minutes, []int{1, 2, 3, 4, 5}},
		{"single", "12", Hours, []int{12}},
		{"list", "0,30", Minutes, []int{0, 30}},
		{"range with step", "1-10/3", DaysOfMonth, []int{1, 4, 7, 10}},
		{"mixed entries", "1-3,10-12/2,20", DaysOfMonth, []int{1, 2, 3, 10, 12, 20}},
		{"duplicates collapse", "5,5,1-5", Minutes, []int{1, 2, 3, 4, 5}},
		{"star", "*", Hours, seq(0, 23)},
		{"month names", "jan-mar,Oct", Months, []int{1, 2, 3, 10}},
		{"month name and number", "1-march,Oct-12/2", Months, []int{1, 2, 3, 10, 12}},
		{"two letter names in table order", "ma,ju", Months, []int{3, 6}},
		{"longer prefix disambiguates", "may,jul", Months, []int{5, 7}},
		{"weekday names", "MON-fri", DaysOfWeek, []int{1, 2, 3, 4, 5}},
		{"sunday name", "su", DaysOfWeek, []int{0}},
		{"full weekday name", "Saturday", DaysOfWeek, []int{6}},
		{"star with step on weekdays", "*/2", DaysOfWeek, []int{0, 2, 4, 6}},
		{"whitespace trimmed", " 7 ", Hours, []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseField(tt.text, tt.bounds)
			if err != nil {
				t.Fatalf("ParseField(%q) error: %v", tt.text, err)
			}
			if diff := cmp.Diff(tt.want, f.Values()); diff != "" {
				t.Errorf("ParseField(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestParseField_Errors(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		bounds     Bounds
		outOfRange bool
	}{
		{"empty", "", Minutes, false},
		{"empty entry", "1,,2", Minutes, false},
		{"step on single value", "12/3", Minutes, false},
		{"step on month name", "Oct/4", Months, false},
		{"zero step", "*/0", Minutes, false},
		{"non-numeric step", "*/x", Minutes, false},
		{"names outside month and weekday", "mon", Hours, false},
		{"unknown name", "xyz", Months, false},
		{"single letter name", "m", DaysOfWeek, false},
		{"garbage", "1-2-3", Minutes, false},
		{"negative", "-5", Minutes, false},
		{"star in range", "*-5", Minutes, false},
		{"single above high", "60", Minutes, true},
		{"single below low", "0", DaysOfMonth, true},
		{"range end above high", "10-60", Minutes, true},
		{"range begin at high", "23-23", Hours, true},
		{"range end at low", "1-1", DaysOfMonth, true},
		{"inverted range", "10-5", Minutes, true},
		{"month thirteen", "13", Months, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseField(tt.text, tt.bounds)
			if err == nil {
				t.Fatalf("ParseField(%q) expected error", tt.text)
			}

			var oob *OutOfBoundsError
			var perr *ParseError
			if tt.outOfRange {
				if !errors.As(err, &oob) {
					t.Errorf("ParseField(%q) = %T, want *OutOfBoundsError", tt.text, err)
				}
			} else if !errors.As(err, &perr) {
				t.Errorf("ParseField(%q) = %T, want *ParseError", tt.text, err)
			}
		})
	}
}

func TestField_Full(t *testing.T) {
	tests := []struct {
		text   string
		bounds Bounds
		want   bool
	}{
		{"*", Minutes, true},
		{"0-59", Minutes, true},
		{"*/1", Hours, true},
		{"*/2", Hours, false},
		{"1-30", DaysOfMonth, false},
		{"jan-dec", Months, true},
	}

	for _, tt := range tests {
		f, err := ParseField(tt.text, tt.bounds)
		if err != nil {
			t.Fatalf("ParseField(%q): %v", tt.text, err)
		}
		if got := f.Full(); got != tt.want {
			t.Errorf("ParseField(%q).Full() = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestField_String(t *testing.T) {
	tests := []struct {
		text   string
		bounds Bounds
		want   string
	}{
		{"*", Minutes, "*"},
		{"*/15", Minutes, "0,15,30,45"},
		{"1-5,7,8", DaysOfMonth, "1-5,7,8"},
		{"mon-wed", DaysOfWeek, "1-3"},
	}

	for _, tt := range tests {
		f, err := ParseField(tt.text, tt.bounds)
		if err != nil {
			t.Fatalf("ParseField(%q): %v", tt.text, err)
		}
		if got := f.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestField_Next(t *testing.T) {
	f, err := ParseField("5,20,40", Minutes)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		from   int
		want   int
		wantOK bool
	}{
		{0, 5, true},
		{5, 5, true},
		{6, 20, true},
		{40, 40, true},
		{41, 0, false},
		{60, 0, false},
	}
	for _, tt := range tests {
		got, ok := f.next(tt.from)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("next(%d) = %d, %v; want %d, %v", tt.from, got, ok, tt.want, tt.wantOK)
		}
	}
}

func seq(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}
