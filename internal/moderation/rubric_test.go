package moderation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbay/internal/domain"
	"rentbay/internal/moderation"
)

func goodFacts() moderation.ListingFacts {
	return moderation.ListingFacts{
		PhotoCount: 8, HasCover: true, LocationPrecision: domain.LocationExact,
		TitleLength: 30, DescriptionLength: 200, PriceMinor: 100_000,
	}
}

func result(r moderation.Rubric, key string) string {
	for _, c := range r.Checks {
		if c.Key == key {
			return c.Result
		}
	}
	return ""
}

func TestEvaluate(t *testing.T) {
	r := moderation.Evaluate(goodFacts())
	assert.Equal(t, moderation.Pass, r.Overall)
	assert.Len(t, r.Checks, 6)

	f := goodFacts()
	f.PhotoCount = 3
	f.HasCover = false
	f.LocationPrecision = domain.LocationApproximate
	r = moderation.Evaluate(f)
	assert.Equal(t, moderation.NeedsFix, r.Overall)
	assert.Equal(t, moderation.NeedsFix, result(r, "photos"))
	assert.Equal(t, moderation.NeedsFix, result(r, "cover_image"))
	assert.Equal(t, moderation.NeedsFix, result(r, "location"))

	f = goodFacts()
	f.PhotoCount = 0
	f.HasCover = false
	r = moderation.Evaluate(f)
	assert.Equal(t, moderation.Fail, r.Overall)
	assert.Equal(t, moderation.Fail, result(r, "cover_image"))

	f = goodFacts()
	f.LocationPrecision = ""
	assert.Equal(t, moderation.Fail, moderation.Evaluate(f).Overall)

	f = goodFacts()
	f.TitleLength = 0
	r = moderation.Evaluate(f)
	assert.Equal(t, moderation.NeedsFix, r.Overall)
}

func TestFactsOf(t *testing.T) {
	cover := "a.jpg"
	f := moderation.FactsOf(domain.Listing{
		Title: "Duplex à Lekki", Photos: []string{"a.jpg", "b.jpg"}, CoverImage: &cover,
		Description: strings.Repeat("x", 90), PriceMinor: 1,
	})
	assert.Equal(t, 2, f.PhotoCount)
	assert.True(t, f.HasCover)
	assert.Equal(t, 14, f.TitleLength)
}

func TestDecide(t *testing.T) {
	pass := moderation.Evaluate(goodFacts())

	d, err := moderation.Decide(domain.StatusPending, moderation.ActionApprove, "", pass)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLive, d.To)

	failing := moderation.Rubric{Overall: moderation.Fail}
	_, err = moderation.Decide(domain.StatusPending, moderation.ActionApprove, "", failing)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = moderation.Decide(domain.StatusLive, moderation.ActionApprove, "", pass)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = moderation.Decide(domain.StatusPending, moderation.ActionReject, "  ", pass)
	assert.True(t, errors.Is(err, domain.ErrInvalid))

	d, err = moderation.Decide(domain.StatusPending, moderation.ActionRequestChanges, "add photos", failing)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusChangesRequested, d.To)
	assert.Equal(t, "add photos", *d.Reason)

	_, err = moderation.Decide(domain.StatusPending, "archive", "", pass)
	assert.True(t, errors.Is(err, domain.ErrInvalid))
}
