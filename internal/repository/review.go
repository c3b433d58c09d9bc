// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/tourbook/tourbook/internal/models"
	"github.com/vinovest/sqlx"
)

const reviewSelect = `SELECT r.id, r.review, r.rating, r.tour_id, r.user_id, r.created_at,
	u.name AS user_name, u.photo AS user_photo
	FROM reviews r JOIN users u ON u.id = r.user_id`

var reviewFields = columnSet{
	"id":        "r.id",
	"rating":    "r.rating",
	"tour":      "r.tour_id",
	"user":      "r.user_id",
	"createdAt": "r.created_at",
}

// CreateReview inserts a review and refreshes the tour's rating aggregates.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) error {
	review.CreatedAt = r.timestamp()
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		id, err := insert(ctx, tx,
			`INSERT INTO reviews (review, rating, tour_id, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			review.Review, review.Rating, review.TourID, review.UserID, review.CreatedAt)
		if err != nil {
			return wrapWriteError(err, map[string]any{"tour_id": review.TourID, "user_id": review.UserID})
		}
		review.ID = id
		return recalcRatings(ctx, tx, review.TourID)
	})
}

// GetReviewByID retrieves a review by ID.
func (r *Repository) GetReviewByID(ctx context.Context, id int64) (*models.Review, error) {
	var review models.Review
	if err := r.db.GetContext(ctx, &review, r.db.Rebind(reviewSelect+` WHERE r.id = ?`), id); err != nil {
		return nil, wrapError(err)
	}
	return &review, nil
}

// ListReviews returns reviews matching p.
func (r *Repository) ListReviews(ctx context.Context, p ListParams) ([]models.Review, error) {
	clauses, args := reviewFields.build(p, "r.created_at DESC", nil)
	reviews := []models.Review{}
	if err := r.db.SelectContext(ctx, &reviews, r.db.Rebind(reviewSelect+clauses), args...); err != nil {
		return nil, err
	}
	return reviews, nil
}

// UpdateReview saves the text and rating of a review.
func (r *Repository) UpdateReview(ctx context.Context, review *models.Review) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		err := requireAffected(tx.ExecContext(ctx,
			tx.Rebind(`UPDATE reviews SET review = ?, rating = ? WHERE id = ?`),
			review.Review, review.Rating, review.ID))
		if err != nil {
			return err
		}
		return recalcRatings(ctx, tx, review.TourID)
	})
}

// DeleteReview deletes a review and refreshes the tour's rating aggregates.
func (r *Repository) DeleteReview(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var tourID int64
		if err := tx.GetContext(ctx, &tourID, tx.Rebind(`SELECT tour_id FROM reviews WHERE id = ?`), id); err != nil {
			return wrapError(err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM reviews WHERE id = ?`), id); err != nil {
			return err
		}
		return recalcRatings(ctx, tx, tourID)
	})
}

func recalcRatings(ctx context.Context, tx *sqlx.Tx, tourID int64) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE tours SET
			ratings_quantity = (SELECT COUNT(*) FROM reviews WHERE tour_id = ?),
			ratings_average = COALESCE((SELECT ROUND(AVG(rating), 1) FROM reviews WHERE tour_id = ?), ?)
		WHERE id = ?`), tourID, tourID, models.DefaultRatingsAverage, tourID)
	return err
}
