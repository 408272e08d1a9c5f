package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/offerhub/offerhub/internal/domain"
	apperrors "github.com/offerhub/offerhub/pkg/errors"
	"github.com/offerhub/offerhub/pkg/database"
)

// ScheduleRepository implements repository.ScheduleRepository using PostgreSQL.
type ScheduleRepository struct {
	db database.Querier
}

// ListByCampaign returns the campaign's schedules ordered by start time.
func (r *ScheduleRepository) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Schedule, error) {
	query := `
		SELECT id, campaign_id, starts_at, ends_at, quantity, expiry_days,
		       status, publish_at, created_at, updated_at
		FROM schedules
		WHERE campaign_id = $1
		ORDER BY starts_at, id`

	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		var s domain.Schedule
		if err := rows.Scan(
			&s.ID,
			&s.CampaignID,
			&s.StartsAt,
			&s.EndsAt,
			&s.Quantity,
			&s.ExpiryDays,
			&s.Status,
			&s.PublishAt,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule rows: %w", err)
	}

	return schedules, nil
}

// Replace swaps the campaign's schedule set for the given one: known IDs are
// updated, new ones inserted, and schedules absent from the list deleted.
func (r *ScheduleRepository) Replace(ctx context.Context, campaignID string, schedules []domain.Schedule) error {
	now := time.Now().UTC()

	keep := make([]string, 0, len(schedules))
	for i := range schedules {
		s := &schedules[i]
		keep = append(keep, s.ID)

		query := `
			INSERT INTO schedules (id, campaign_id, starts_at, ends_at, quantity,
			                       expiry_days, status, publish_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				starts_at = EXCLUDED.starts_at,
				ends_at = EXCLUDED.ends_at,
				quantity = EXCLUDED.quantity,
				expiry_days = EXCLUDED.expiry_days,
				status = EXCLUDED.status,
				publish_at = EXCLUDED.publish_at,
				updated_at = EXCLUDED.updated_at`

		_, err := r.db.Exec(ctx, query,
			s.ID,
			campaignID,
			s.StartsAt,
			s.EndsAt,
			s.Quantity,
			s.ExpiryDays,
			s.Status,
			s.PublishAt,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("upsert schedule %s: %w", s.ID, err)
		}
	}

	deleteQuery := `DELETE FROM schedules WHERE campaign_id = $1 AND NOT (id = ANY($2))`
	if _, err := r.db.Exec(ctx, deleteQuery, campaignID, keep); err != nil {
		return fmt.Errorf("delete removed schedules: %w", err)
	}

	return nil
}

// UpdateQuantity writes the reconciled total voucher count back onto the schedule.
func (r *ScheduleRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	query := `
		UPDATE schedules
		SET quantity = $1, updated_at = NOW()
		WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("update schedule quantity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("schedule", id)
	}

	return nil
}
