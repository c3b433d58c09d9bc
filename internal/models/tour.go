// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Difficulty levels of a tour.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// DefaultRatingsAverage is the rating of a tour without reviews.
const DefaultRatingsAverage = 4.5

type Tour struct { //nolint:govet // fieldalignment not critical for models
	ID              int64      `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Slug            string     `db:"slug" json:"slug"`
	Duration        int        `db:"duration" json:"duration"`
	MaxGroupSize    int        `db:"max_group_size" json:"maxGroupSize"`
	Difficulty      string     `db:"difficulty" json:"difficulty"`
	RatingsAverage  float64    `db:"ratings_average" json:"ratingsAverage"`
	RatingsQuantity int        `db:"ratings_quantity" json:"ratingsQuantity"`
	Price           float64    `db:"price" json:"price"`
	PriceDiscount   float64    `db:"price_discount" json:"priceDiscount,omitempty"`
	Summary         string     `db:"summary" json:"summary"`
	Description     string     `db:"description" json:"description,omitempty"`
	ImageCover      string     `db:"image_cover" json:"imageCover"`
	StartDate       *time.Time `db:"start_date" json:"startDate,omitempty"`
	Secret          bool       `db:"secret" json:"-"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

// Validate checks the tour fields and derives the slug from the name.
func (t *Tour) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)

	v := validator{}
	v.check(t.Name != "", "name", "A tour must have a name")
	v.check(len(t.Name) <= 40, "name", "A tour name must have less or equal than 40 characters")
	v.check(t.Name == "" || len(t.Name) >= 10, "name", "A tour name must have more or equal than 10 characters")
	v.check(t.Duration > 0, "duration", "A tour must have a duration")
	v.check(t.MaxGroupSize > 0, "maxGroupSize", "A tour must have a group size")
	switch t.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
	default:
		v.check(false, "difficulty", "Difficulty is either: easy, medium, difficult")
	}
	v.check(t.RatingsAverage == 0 || (t.RatingsAverage >= 1 && t.RatingsAverage <= 5), "ratingsAverage", "Rating must be between 1.0 and 5.0")
	v.check(t.Price > 0, "price", "A tour must have a price")
	v.check(t.PriceDiscount < t.Price || t.PriceDiscount == 0, "priceDiscount", "Discount price should be below regular price")
	v.check(t.Summary != "", "summary", "A tour must have a summary")
	v.check(t.ImageCover != "", "imageCover", "A tour must have a cover image")

	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	t.Slug = Slugify(t.Name)

	return v.err()
}

var slugFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns a name into a lowercase, dash-separated URL segment.
func Slugify(name string) string {
	folded, _, err := transform.String(slugFold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
