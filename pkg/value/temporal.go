package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const nanosPerSecond = int64(time.Second)
const nanosPerDay = int64(24 * time.Hour)

// Date is a calendar date, stored as days since the Unix epoch.
type Date struct {
	EpochDay int64
}

func (Date) Kind() Kind   { return KindDate }
func (Date) valueMarker() {}

func (d Date) civil() (year int, month time.Month, day int) {
	t := time.Unix(d.EpochDay*86400, 0).UTC()
	return t.Year(), t.Month(), t.Day()
}

// LocalTime is a time-of-day with no timezone, stored as nanoseconds since
// midnight.
type LocalTime int64

func (LocalTime) Kind() Kind   { return KindLocalTime }
func (LocalTime) valueMarker() {}

// ZonedTime is a time-of-day with a fixed UTC offset.
type ZonedTime struct {
	NanosOfDay    int64
	OffsetSeconds int32
}

func (ZonedTime) Kind() Kind   { return KindZonedTime }
func (ZonedTime) valueMarker() {}

// LocalDateTime combines Date and LocalTime with no timezone.
type LocalDateTime struct {
	EpochDay   int64
	NanosOfDay int64
}

func (LocalDateTime) Kind() Kind   { return KindLocalDateTime }
func (LocalDateTime) valueMarker() {}

// ZonedDateTime combines Date and LocalTime with a fixed UTC offset.
type ZonedDateTime struct {
	EpochDay      int64
	NanosOfDay    int64
	OffsetSeconds int32
}

func (ZonedDateTime) Kind() Kind   { return KindZonedDateTime }
func (ZonedDateTime) valueMarker() {}

// Epoch returns the instant as a time.Time in UTC (offset applied).
func (z ZonedDateTime) Epoch() time.Time {
	secs := z.EpochDay*86400 + z.NanosOfDay/nanosPerSecond - int64(z.OffsetSeconds)
	nsec := z.NanosOfDay % nanosPerSecond
	return time.Unix(secs, nsec).UTC()
}

// Duration is an ISO-8601 `P...` duration, decomposed into the
// calendar-sensitive (months, days) and fixed (seconds, nanos) components
// so that "months before days" calendar arithmetic (§4.1) is deterministic.
type Duration struct {
	Months  int64
	Days    int64
	Seconds int64
	Nanos   int64
}

func (Duration) Kind() Kind   { return KindDuration }
func (Duration) valueMarker() {}

// ApproxNanos gives a total-order-only nanosecond approximation (30-day
// months, 24-hour days) used solely for Duration ordering comparisons;
// never used for actual date arithmetic.
func (d Duration) ApproxNanos() int64 {
	return d.Months*30*nanosPerDay + d.Days*nanosPerDay + d.Seconds*nanosPerSecond + d.Nanos
}

// ParseDate parses an ISO-8601 date string (YYYY-MM-DD), returning
// (Date{}, false) on failure — callers degrade to Null (§4.1 failure modes).
func ParseDate(s string) (Date, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, false
	}
	return DateFromTime(t), true
}

// DateFromTime truncates a time.Time to its calendar date.
func DateFromTime(t time.Time) Date {
	u := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Date{EpochDay: u.Unix() / 86400}
}

// DateFromComponents builds a Date from the component map recognized by
// temporal constructors (§4.1): year/month/day or year/week/dayOfWeek or
// year/quarter/... or year/dayOfYear.
func DateFromComponents(m Map) (Date, bool) {
	year, ok := intComp(m, "year")
	if !ok {
		return Date{}, false
	}
	if doy, ok := intComp(m, "dayOfYear"); ok {
		t := time.Date(int(year), time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(doy)-1)
		return DateFromTime(t), true
	}
	month, hasMonth := intComp(m, "month")
	day, hasDay := intComp(m, "day")
	if !hasMonth {
		month = 1
	}
	if !hasDay {
		day = 1
	}
	t := time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC)
	return DateFromTime(t), true
}

func intComp(m Map, key string) (int64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case Int:
		return int64(n), true
	case Float:
		return int64(n), true
	default:
		return 0, false
	}
}

// ParseLocalTime parses "HH:MM:SS[.ffffff]".
func ParseLocalTime(s string) (LocalTime, bool) {
	for _, layout := range []string{"15:04:05.999999999", "15:04:05", "15:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			nanos := int64(t.Hour())*int64(time.Hour) + int64(t.Minute())*int64(time.Minute) +
				int64(t.Second())*int64(time.Second) + int64(t.Nanosecond())
			return LocalTime(nanos), true
		}
	}
	return 0, false
}

// ParseDuration parses an ISO-8601 "P[n]Y[n]M[n]D[T[n]H[n]M[n]S]" duration
// string. Returns (Duration{}, false) on malformed input.
func ParseDuration(s string) (Duration, bool) {
	if !strings.HasPrefix(s, "P") {
		return Duration{}, false
	}
	s = s[1:]
	datePart, timePart, hasTime := strings.Cut(s, "T")
	var d Duration

	readNum := func(s string) (string, float64, bool) {
		i := 0
		for i < len(s) && (isDigit(s[i]) || s[i] == '.' || s[i] == '-') {
			i++
		}
		if i == 0 {
			return s, 0, false
		}
		n, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return s, 0, false
		}
		return s[i:], n, true
	}

	rest := datePart
	for len(rest) > 0 {
		var n float64
		var ok bool
		rest, n, ok = readNum(rest)
		if !ok || len(rest) == 0 {
			return Duration{}, false
		}
		unit := rest[0]
		rest = rest[1:]
		switch unit {
		case 'Y':
			d.Months += int64(n) * 12
		case 'M':
			d.Months += int64(n)
		case 'W':
			d.Days += int64(n) * 7
		case 'D':
			d.Days += int64(n)
		default:
			return Duration{}, false
		}
	}

	if hasTime {
		rest = timePart
		for len(rest) > 0 {
			var n float64
			var ok bool
			rest, n, ok = readNum(rest)
			if !ok || len(rest) == 0 {
				return Duration{}, false
			}
			unit := rest[0]
			rest = rest[1:]
			switch unit {
			case 'H':
				d.Seconds += int64(n * 3600)
			case 'M':
				d.Seconds += int64(n * 60)
			case 'S':
				whole := int64(n)
				d.Seconds += whole
				d.Nanos += int64((n - float64(whole)) * float64(nanosPerSecond))
			default:
				return Duration{}, false
			}
		}
	}
	return d, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// FormatDuration renders d in an ISO-8601-like form: the time part is
// written as total seconds, and a non-zero nanosecond part as an "NS"
// component, which ISO-8601 does not have.
func FormatDuration(d Duration) string {
	years := d.Months / 12
	months := d.Months % 12
	var b strings.Builder
	b.WriteString("P")
	if years != 0 {
		fmt.Fprintf(&b, "%dY", years)
	}
	if months != 0 {
		fmt.Fprintf(&b, "%dM", months)
	}
	if d.Days != 0 {
		fmt.Fprintf(&b, "%dD", d.Days)
	}
	if d.Seconds != 0 || d.Nanos != 0 {
		b.WriteString("T")
		secs := d.Seconds
		if secs != 0 {
			fmt.Fprintf(&b, "%dS", secs)
		}
		if d.Nanos != 0 {
			fmt.Fprintf(&b, "%dNS", d.Nanos)
		}
	}
	if b.Len() == 1 {
		b.WriteString("0D")
	}
	return b.String()
}

// addTemporal implements temporal + duration and duration + duration
// calendar arithmetic ("months before days", §4.1). ok is false when
// neither operand is temporal, signalling the caller to fall back to
// numeric arithmetic.
func addTemporal(a, b Value) (Value, bool) {
	if da, ok := a.(Duration); ok {
		if db, ok := b.(Duration); ok {
			return Duration{
				Months:  da.Months + db.Months,
				Days:    da.Days + db.Days,
				Seconds: da.Seconds + db.Seconds,
				Nanos:   da.Nanos + db.Nanos,
			}, true
		}
	}
	dur, durOk := b.(Duration)
	if !durOk {
		dur, durOk = a.(Duration)
		if durOk {
			a, b = b, a
		}
	}
	if !durOk {
		return nil, false
	}
	switch t := a.(type) {
	case Date:
		return addDurationToDate(t, dur), true
	case LocalDateTime:
		return addDurationToLocalDateTime(t, dur), true
	case ZonedDateTime:
		return addDurationToZonedDateTime(t, dur), true
	default:
		return nil, false
	}
}

func subTemporal(a, b Value) (Value, bool) {
	if db, ok := b.(Duration); ok {
		neg := Duration{Months: -db.Months, Days: -db.Days, Seconds: -db.Seconds, Nanos: -db.Nanos}
		if da, ok := a.(Duration); ok {
			return addTemporal(da, neg)
		}
		switch t := a.(type) {
		case Date:
			return addDurationToDate(t, neg), true
		case LocalDateTime:
			return addDurationToLocalDateTime(t, neg), true
		case ZonedDateTime:
			return addDurationToZonedDateTime(t, neg), true
		}
	}
	return nil, false
}

func addDurationToDate(d Date, dur Duration) Date {
	year, month, day := d.civil()
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	t = t.AddDate(0, int(dur.Months), int(dur.Days))
	return DateFromTime(t)
}

func addDurationToLocalDateTime(ldt LocalDateTime, dur Duration) LocalDateTime {
	base := time.Unix(ldt.EpochDay*86400, ldt.NanosOfDay).UTC()
	base = base.AddDate(0, int(dur.Months), int(dur.Days))
	base = base.Add(time.Duration(dur.Seconds)*time.Second + time.Duration(dur.Nanos))
	return LocalDateTime{EpochDay: base.Unix() / 86400, NanosOfDay: int64(base.Sub(base.Truncate(24 * time.Hour)))}
}

func addDurationToZonedDateTime(zdt ZonedDateTime, dur Duration) ZonedDateTime {
	base := time.Unix(zdt.EpochDay*86400, zdt.NanosOfDay).UTC()
	base = base.AddDate(0, int(dur.Months), int(dur.Days))
	base = base.Add(time.Duration(dur.Seconds)*time.Second + time.Duration(dur.Nanos))
	dayStart := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)
	return ZonedDateTime{
		EpochDay:      dayStart.Unix() / 86400,
		NanosOfDay:    int64(base.Sub(dayStart)),
		OffsetSeconds: zdt.OffsetSeconds,
	}
}
