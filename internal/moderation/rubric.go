package moderation

import (
	"unicode/utf8"

	"rentbay/internal/domain"
)

const (
	Pass     = "pass"
	NeedsFix = "needs_fix"
	Fail     = "fail"
)

const (
	MinPhotos      = 5
	MinTitle       = 10
	MinDescription = 80
)

type Check struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Result string `json:"result"`
}

type Rubric struct {
	Overall string  `json:"overall"`
	Checks  []Check `json:"checks"`
}

func (r Rubric) Approvable() bool { return r.Overall != Fail }

type ListingFacts struct {
	PhotoCount        int
	HasCover          bool
	LocationPrecision string
	TitleLength       int
	DescriptionLength int
	PriceMinor        int64
}

func FactsOf(l domain.Listing) ListingFacts {
	return ListingFacts{
		PhotoCount:        len(l.Photos),
		HasCover:          l.CoverImage != nil && *l.CoverImage != "",
		LocationPrecision: l.LocationPrecision,
		TitleLength:       utf8.RuneCountInString(l.Title),
		DescriptionLength: utf8.RuneCountInString(l.Description),
		PriceMinor:        l.PriceMinor,
	}
}

// Evaluate runs the fixed checklist in display order.
func Evaluate(f ListingFacts) Rubric {
	checks := []Check{
		{Key: "photos", Label: "At least 5 photos", Result: photos(f.PhotoCount)},
		{Key: "cover_image", Label: "Cover image selected", Result: cover(f)},
		{Key: "location", Label: "Exact map location", Result: location(f.LocationPrecision)},
		{Key: "title", Label: "Descriptive title", Result: threshold(f.TitleLength, MinTitle, NeedsFix)},
		{Key: "description", Label: "Full description", Result: threshold(f.DescriptionLength, MinDescription, Fail)},
		{Key: "price", Label: "Price set", Result: price(f.PriceMinor)},
	}
	overall := Pass
	for _, c := range checks {
		switch c.Result {
		case Fail:
			overall = Fail
		case NeedsFix:
			if overall == Pass {
				overall = NeedsFix
			}
		}
	}
	return Rubric{Overall: overall, Checks: checks}
}

func photos(n int) string {
	switch {
	case n >= MinPhotos:
		return Pass
	case n > 0:
		return NeedsFix
	default:
		return Fail
	}
}

func cover(f ListingFacts) string {
	switch {
	case f.HasCover:
		return Pass
	case f.PhotoCount > 0:
		return NeedsFix
	default:
		return Fail
	}
}

func location(p string) string {
	switch p {
	case domain.LocationExact:
		return Pass
	case domain.LocationApproximate:
		return NeedsFix
	default:
		return Fail
	}
}

// threshold passes at min, and returns whenEmpty for zero length.
func threshold(n, min int, whenEmpty string) string {
	switch {
	case n >= min:
		return Pass
	case n == 0:
		return whenEmpty
	default:
		return NeedsFix
	}
}

func price(minor int64) string {
	if minor > 0 {
		return Pass
	}
	return Fail
}
