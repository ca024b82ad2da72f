// Package shortlet computes viewing slots and stay checks for short-let listings.
package shortlet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"rentbay/internal/domain"
)

const dateLayout = "2006-01-02"

type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SlotInput struct {
	Date        string // YYYY-MM-DD in Timezone
	Timezone    string
	SlotMinutes int
	Rules       []domain.ViewingRule
	Exceptions  []domain.DateException
	Now         time.Time
}

// minutes since local midnight
type span struct{ start, end int }

// GenerateSlots enumerates bookable windows for one local date. Results are UTC, sorted
// and never start before in.Now.
func GenerateSlots(in SlotInput) ([]Slot, error) {
	if in.SlotMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot length must be positive", domain.ErrInvalid)
	}
	loc, err := time.LoadLocation(in.Timezone)
	if err != nil || in.Timezone == "" {
		return nil, fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalid, in.Timezone)
	}
	day, err := time.ParseInLocation(dateLayout, in.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalid)
	}

	spans, err := windowsFor(day, in.Rules, in.Exceptions)
	if err != nil {
		return nil, err
	}
	spans = merge(spans)

	out := make([]Slot, 0, 16)
	for _, sp := range spans {
		for m := sp.start; m+in.SlotMinutes <= sp.end; m += in.SlotMinutes {
			start, ok1 := wallClock(day, m, loc)
			end, ok2 := wallClock(day, m+in.SlotMinutes, loc)
			// a boundary inside a DST gap, or a slot stretched by a repeated hour
			if !ok1 || !ok2 || end.Sub(start) != time.Duration(in.SlotMinutes)*time.Minute {
				continue
			}
			if !in.Now.IsZero() && start.Before(in.Now) {
				continue
			}
			out = append(out, Slot{Start: start.UTC(), End: end.UTC()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return dedupe(out), nil
}

func windowsFor(day time.Time, rules []domain.ViewingRule, exceptions []domain.DateException) ([]span, error) {
	date := day.Format(dateLayout)
	for _, ex := range exceptions {
		if ex.Date != date {
			continue
		}
		if ex.Closed {
			return nil, nil
		}
		if len(ex.Windows) > 0 {
			out := make([]span, 0, len(ex.Windows))
			for _, w := range ex.Windows {
				sp, ok, err := parseSpan(w.Start, w.End)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, sp)
				}
			}
			return out, nil
		}
	}

	var out []span
	for _, r := range rules {
		if r.Weekday != day.Weekday() {
			continue
		}
		sp, ok, err := parseSpan(r.Start, r.End)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

// parseSpan reports ok=false for empty or inverted windows.
func parseSpan(start, end string) (span, bool, error) {
	s, err := parseClock(start)
	if err != nil {
		return span{}, false, err
	}
	e, err := parseClock(end)
	if err != nil {
		return span{}, false, err
	}
	if e <= s {
		return span{}, false, nil
	}
	return span{start: s, end: e}, true, nil
}

func parseClock(v string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", domain.ErrInvalid, v)
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", domain.ErrInvalid, v)
	}
	return h*60 + m, nil
}

func merge(in []span) []span {
	if len(in) < 2 {
		return in
	}
	sort.Slice(in, func(i, j int) bool { return in[i].start < in[j].start })
	out := []span{in[0]}
	for _, sp := range in[1:] {
		last := &out[len(out)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}

// wallClock resolves minutes past local midnight on day. ok is false when that wall
// time does not exist in loc.
func wallClock(day time.Time, minutes int, loc *time.Location) (time.Time, bool) {
	t := time.Date(day.Year(), day.Month(), day.Day(), 0, minutes, 0, 0, loc)
	want := time.Date(day.Year(), day.Month(), day.Day(), 0, minutes, 0, 0, time.UTC)
	got := t.In(loc)
	y1, m1, d1 := got.Date()
	y2, m2, d2 := want.Date()
	return t, y1 == y2 && m1 == m2 && d1 == d2 && got.Hour() == want.Hour() && got.Minute() == want.Minute()
}

func dedupe(in []Slot) []Slot {
	if len(in) < 2 {
		return in
	}
	out := in[:1]
	for _, s := range in[1:] {
		if !s.Start.Equal(out[len(out)-1].Start) {
			out = append(out, s)
		}
	}
	return out
}
