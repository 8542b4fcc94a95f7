package reporting

import "time"

type granularity int

const (
	dayBucket granularity = iota
	monthBucket
	yearBucket
)

// calendar maps instants to business-calendar buckets. A business day runs from
// the cutover hour on the local wall clock to the same hour the next day, so
// days around DST changes are 23 or 25 hours long. Months and years start at
// the cutover of their first day.
type calendar struct {
	loc  *time.Location
	hour int
}

func newCalendar(opts Options) calendar {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return calendar{loc: loc, hour: min(max(opts.CutoverHour, 0), 23)}
}

// BusinessDay returns the calendar date of the business day containing t.
func (c calendar) BusinessDay(t time.Time) (int, time.Month, int) {
	local := t.In(c.loc)
	y, m, d := local.Date()
	if local.Before(c.DayStart(y, m, d)) {
		return time.Date(y, m, d-1, 0, 0, 0, 0, c.loc).Date()
	}
	return y, m, d
}

// DayStart returns the instant the business day dated y-m-d begins.
func (c calendar) DayStart(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, c.hour, 0, 0, 0, c.loc)
}

func (c calendar) span(t time.Time, g granularity) (string, time.Time, time.Time) {
	y, m, d := c.BusinessDay(t)
	switch g {
	case monthBucket:
		start := c.DayStart(y, m, 1)
		end := c.DayStart(y, m+1, 1)
		return start.Format("2006-01"), start, end
	case yearBucket:
		start := c.DayStart(y, time.January, 1)
		end := c.DayStart(y+1, time.January, 1)
		return start.Format("2006"), start, end
	default:
		start := c.DayStart(y, m, d)
		end := c.DayStart(y, m, d+1)
		return start.Format(time.DateOnly), start, end
	}
}

func (c calendar) bucket(m map[string]*Bucket, t time.Time, g granularity) *Bucket {
	key, start, end := c.span(t, g)
	b, ok := m[key]
	if !ok {
		b = &Bucket{Key: key, Start: start, End: end}
		m[key] = b
	}
	return b
}
