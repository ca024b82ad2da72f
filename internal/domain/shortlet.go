package domain

import "time"

// ViewingRule opens a daily window on one weekday, in listing-local time.
type ViewingRule struct {
	Weekday time.Weekday `json:"weekday"`
	Start   string       `json:"start"` // HH:MM
	End     string       `json:"end"`   // HH:MM
}

type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DateException overrides the weekday rules for one calendar date.
type DateException struct {
	Date    string   `json:"date"` // YYYY-MM-DD
	Closed  bool     `json:"closed"`
	Windows []Window `json:"windows,omitempty"`
}

type ShortletSettings struct {
	ListingID        string
	Timezone         string
	NightlyMinor     int64
	CleaningFeeMinor int64
	MinNights        int
	MaxNights        int
	SlotMinutes      int
	Rules            []ViewingRule
	Exceptions       []DateException
}

// DateRange is half-open: [From, To).
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Overlaps(o DateRange) bool {
	return r.From.Before(o.To) && o.From.Before(r.To)
}
