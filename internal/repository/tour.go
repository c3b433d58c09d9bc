// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/tourbook/tourbook/internal/models"
	"github.com/vinovest/sqlx"
)

const tourColumns = `id, name, slug, duration, max_group_size, difficulty, ratings_average,
	ratings_quantity, price, price_discount, summary, description, image_cover, start_date, secret, created_at`

var tourFields = columnSet{
	"id":              "id",
	"name":            "name",
	"duration":        "duration",
	"maxGroupSize":    "max_group_size",
	"difficulty":      "difficulty",
	"ratingsAverage":  "ratings_average",
	"ratingsQuantity": "ratings_quantity",
	"price":           "price",
	"startDate":       "start_date",
	"createdAt":       "created_at",
}

// TourStat aggregates tours of one difficulty.
type TourStat struct {
	Difficulty string  `db:"difficulty" json:"difficulty"`
	NumTours   int     `db:"num_tours" json:"numTours"`
	NumRatings int     `db:"num_ratings" json:"numRatings"`
	AvgRating  float64 `db:"avg_rating" json:"avgRating"`
	AvgPrice   float64 `db:"avg_price" json:"avgPrice"`
	MinPrice   float64 `db:"min_price" json:"minPrice"`
	MaxPrice   float64 `db:"max_price" json:"maxPrice"`
}

// CreateTour inserts a new tour.
func (r *Repository) CreateTour(ctx context.Context, tour *models.Tour) error {
	if tour.RatingsAverage == 0 {
		tour.RatingsAverage = models.DefaultRatingsAverage
	}
	tour.CreatedAt = r.timestamp()

	id, err := insert(ctx, r.db,
		`INSERT INTO tours (name, slug, duration, max_group_size, difficulty, ratings_average, ratings_quantity,
			price, price_discount, summary, description, image_cover, start_date, secret, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tour.Name, tour.Slug, tour.Duration, tour.MaxGroupSize, tour.Difficulty, tour.RatingsAverage,
		tour.RatingsQuantity, tour.Price, tour.PriceDiscount, tour.Summary, tour.Description,
		tour.ImageCover, tour.StartDate, tour.Secret, tour.CreatedAt)
	if err != nil {
		return wrapWriteError(err, map[string]any{"name": tour.Name})
	}
	tour.ID = id
	return nil
}

// GetTourByID retrieves a public tour by ID.
func (r *Repository) GetTourByID(ctx context.Context, id int64) (*models.Tour, error) {
	var tour models.Tour
	query := r.db.Rebind(`SELECT ` + tourColumns + ` FROM tours WHERE id = ? AND NOT secret`)
	if err := r.db.GetContext(ctx, &tour, query, id); err != nil {
		return nil, wrapError(err)
	}
	return &tour, nil
}

// GetTourBySlug retrieves a public tour by slug.
func (r *Repository) GetTourBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	var tour models.Tour
	query := r.db.Rebind(`SELECT ` + tourColumns + ` FROM tours WHERE slug = ? AND NOT secret`)
	if err := r.db.GetContext(ctx, &tour, query, slug); err != nil {
		return nil, wrapError(err)
	}
	return &tour, nil
}

// ListTours returns public tours.
func (r *Repository) ListTours(ctx context.Context, p ListParams) ([]models.Tour, error) {
	clauses, args := tourFields.build(p, "created_at DESC", []string{"NOT secret"})
	tours := []models.Tour{}
	if err := r.db.SelectContext(ctx, &tours, r.db.Rebind(`SELECT `+tourColumns+` FROM tours`+clauses), args...); err != nil {
		return nil, err
	}
	return tours, nil
}

// UpdateTour saves all editable fields of a tour.
func (r *Repository) UpdateTour(ctx context.Context, tour *models.Tour) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE tours SET name = ?, slug = ?, duration = ?, max_group_size = ?, difficulty = ?,
			price = ?, price_discount = ?, summary = ?, description = ?, image_cover = ?, start_date = ?, secret = ?
		 WHERE id = ?`),
		tour.Name, tour.Slug, tour.Duration, tour.MaxGroupSize, tour.Difficulty, tour.Price,
		tour.PriceDiscount, tour.Summary, tour.Description, tour.ImageCover, tour.StartDate, tour.Secret, tour.ID)
	if err != nil {
		return wrapWriteError(err, map[string]any{"name": tour.Name})
	}
	return requireAffected(res, nil)
}

// DeleteTour deletes a tour and, by cascade, its reviews and bookings.
func (r *Repository) DeleteTour(ctx context.Context, id int64) error {
	return requireAffected(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tours WHERE id = ?`), id))
}

// TourStats groups well-rated tours by difficulty.
func (r *Repository) TourStats(ctx context.Context) ([]TourStat, error) {
	stats := []TourStat{}
	query := r.db.Rebind(`SELECT difficulty,
			COUNT(*) AS num_tours,
			COALESCE(SUM(ratings_quantity), 0) AS num_ratings,
			AVG(ratings_average) AS avg_rating,
			AVG(price) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price
		FROM tours WHERE ratings_average >= ? AND NOT secret
		GROUP BY difficulty ORDER BY avg_price ASC`)
	if err := r.db.SelectContext(ctx, &stats, query, models.DefaultRatingsAverage); err != nil {
		return nil, err
	}
	return stats, nil
}

// SetTourGuides replaces the guides assigned to a tour.
func (r *Repository) SetTourGuides(ctx context.Context, tourID int64, userIDs []int64) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM tour_guides WHERE tour_id = ?`), tourID); err != nil {
			return err
		}
		for _, uid := range userIDs {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO tour_guides (tour_id, user_id) VALUES (?, ?)`), tourID, uid); err != nil {
				return wrapWriteError(err, map[string]any{"tour_id": tourID, "user_id": uid})
			}
		}
		return nil
	})
}

// ListTourGuides returns the active guides of a tour.
func (r *Repository) ListTourGuides(ctx context.Context, tourID int64) ([]models.User, error) {
	guides := []models.User{}
	query := r.db.Rebind(`SELECT u.id, u.name, u.email, u.photo, u.role, u.password_hash, u.password_changed_at,
			u.password_reset_token, u.password_reset_expires, u.active, u.created_at
		FROM users u JOIN tour_guides g ON g.user_id = u.id
		WHERE g.tour_id = ? AND u.active ORDER BY u.name`)
	if err := r.db.SelectContext(ctx, &guides, query, tourID); err != nil {
		return nil, err
	}
	return guides, nil
}
