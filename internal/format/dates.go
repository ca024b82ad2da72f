package format

import "time"

const (
	BucketPast     = "past"
	BucketToday    = "today"
	BucketTomorrow = "tomorrow"
	BucketThisWeek = "this_week"
	BucketLater    = "later"
)

// DayBucket classifies t by calendar day relative to now, both read in loc.
func DayBucket(t, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	day := func(x time.Time) time.Time {
		x = x.In(loc)
		return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, loc)
	}
	d, today := day(t), day(now)
	switch diff := daysBetween(today, d); {
	case diff < 0:
		return BucketPast
	case diff == 0:
		return BucketToday
	case diff == 1:
		return BucketTomorrow
	case diff <= 7:
		return BucketThisWeek
	default:
		return BucketLater
	}
}

// daysBetween counts calendar days; AddDate keeps it correct across DST shifts.
func daysBetween(a, b time.Time) int {
	if b.Before(a) {
		return -daysBetween(b, a)
	}
	n := 0
	for a.Before(b) {
		a = a.AddDate(0, 0, 1)
		n++
	}
	return n
}
