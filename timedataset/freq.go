package timedataset

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var ErrUnknownFreq = errors.New("unknown sampling frequency")

// Unit is the base unit of a sampling frequency
type Unit string

const (
	UnitMinute            Unit = "min"
	UnitHour              Unit = "H"
	UnitDay               Unit = "D"
	UnitBusinessDay       Unit = "B"
	UnitCustomBusinessDay Unit = "C" // business days excluding US federal holidays
	UnitWeek              Unit = "W"
	UnitMonth             Unit = "M"
)

var unitAliases = map[string]Unit{
	"min": UnitMinute,
	"t":   UnitMinute,
	"h":   UnitHour,
	"d":   UnitDay,
	"b":   UnitBusinessDay,
	"c":   UnitCustomBusinessDay,
	"w":   UnitWeek,
	"m":   UnitMonth,
}

// seasonal periods per unit, matching the usual defaults for MASE scaling
var unitSeasonality = map[Unit]int{
	UnitMinute:            1440,
	UnitHour:              24,
	UnitDay:               1,
	UnitBusinessDay:       5,
	UnitCustomBusinessDay: 5,
	UnitWeek:              1,
	UnitMonth:             12,
}

var freqPattern = regexp.MustCompile(`^(\d*)([A-Za-z]+)$`)

var (
	weekdayCalendar = cal.NewBusinessCalendar()
	usCalendar      = newUSCalendar()
)

func newUSCalendar() *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(us.Holidays...)
	return c
}

// Freq is a sampling frequency such as 15min, H or B
type Freq struct {
	Unit     Unit
	Multiple int
}

// ParseFreq parses pandas style frequency strings, e.g. "H", "15min", "2D", "B"
func ParseFreq(s string) (Freq, error) {
	m := freqPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Freq{}, fmt.Errorf("%q, %w", s, ErrUnknownFreq)
	}
	mult := 1
	if m[1] != "" {
		v, err := strconv.Atoi(m[1])
		if err != nil || v <= 0 {
			return Freq{}, fmt.Errorf("invalid multiple in %q, %w", s, ErrUnknownFreq)
		}
		mult = v
	}
	unit, exists := unitAliases[strings.ToLower(m[2])]
	if !exists {
		return Freq{}, fmt.Errorf("%q, %w", s, ErrUnknownFreq)
	}
	return Freq{Unit: unit, Multiple: mult}, nil
}

// MustParseFreq is like ParseFreq but panics on error. Intended for constants in tests and examples.
func MustParseFreq(s string) Freq {
	f, err := ParseFreq(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Freq) multiple() int {
	if f.Multiple <= 0 {
		return 1
	}
	return f.Multiple
}

func (f Freq) String() string {
	if f.Unit == "" {
		return ""
	}
	if f.multiple() == 1 {
		return string(f.Unit)
	}
	return strconv.Itoa(f.Multiple) + string(f.Unit)
}

func (f Freq) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Freq) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*f = Freq{}
		return nil
	}
	parsed, err := ParseFreq(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// IsZero reports whether the frequency is unset
func (f Freq) IsZero() bool {
	return f.Unit == ""
}

// Seasonality returns the number of observations in one seasonal cycle. Multiples that do not
// evenly divide the base period have no seasonality and return 1.
func (f Freq) Seasonality() int {
	base, exists := unitSeasonality[f.Unit]
	if !exists {
		return 1
	}
	mult := f.multiple()
	if base%mult != 0 {
		return 1
	}
	return base / mult
}

// Next returns the time point following t
func (f Freq) Next(t time.Time) time.Time {
	mult := f.multiple()
	switch f.Unit {
	case UnitMinute:
		return t.Add(time.Duration(mult) * time.Minute)
	case UnitHour:
		return t.Add(time.Duration(mult) * time.Hour)
	case UnitDay:
		return t.AddDate(0, 0, mult)
	case UnitWeek:
		return t.AddDate(0, 0, 7*mult)
	case UnitMonth:
		return addMonths(t, mult)
	case UnitBusinessDay:
		return nextWorkday(weekdayCalendar, t, mult)
	case UnitCustomBusinessDay:
		return nextWorkday(usCalendar, t, mult)
	}
	return t
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonths keeps the day of month, clamped to the length of the target month. A month end stays
// on the month end, so Jan 31 steps to Feb 29 and then Mar 31.
func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysInMonth(first)
	if day > last || day == daysInMonth(t) {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func nextWorkday(c *cal.BusinessCalendar, t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if c.IsWorkday(t) {
			n--
		}
	}
	return t
}

// Range returns n time points starting at start
func (f Freq) Range(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	t := make([]time.Time, 0, n)
	curr := start
	for i := 0; i < n; i++ {
		t = append(t, curr)
		curr = f.Next(curr)
	}
	return t
}

// FreqFromDuration maps a fixed interval onto the coarsest matching unit
func FreqFromDuration(d time.Duration) (Freq, error) {
	week := 7 * 24 * time.Hour
	day := 24 * time.Hour
	switch {
	case d <= 0 || d%time.Minute != 0:
		return Freq{}, fmt.Errorf("interval %s, %w", d, ErrUnknownFreq)
	case d%week == 0:
		return Freq{Unit: UnitWeek, Multiple: int(d / week)}, nil
	case d%day == 0:
		return Freq{Unit: UnitDay, Multiple: int(d / day)}, nil
	case d%time.Hour == 0:
		return Freq{Unit: UnitHour, Multiple: int(d / time.Hour)}, nil
	default:
		return Freq{Unit: UnitMinute, Multiple: int(d / time.Minute)}, nil
	}
}
