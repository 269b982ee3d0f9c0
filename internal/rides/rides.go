// Package rides persists ride-history snapshots. The portal is the source of
// truth, so a sync replaces the user's whole list instead of merging.
package rides

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/example/marchkov/internal/db"
	"github.com/example/marchkov/internal/shuttle"
)

type Repo struct {
	db *db.DB
}

func NewRepo(d *db.DB) *Repo {
	return &Repo{db: d}
}

// Replace swaps the stored snapshot for the user atomically.
func (r *Repo) Replace(ctx context.Context, userID int64, records []shuttle.RideRecord) error {
	return r.db.Tx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM ride_history WHERE user_id=$1`, userID); err != nil {
			return err
		}
		for _, rec := range records {
			_, err := tx.Exec(ctx, `
				INSERT INTO ride_history
					(user_id, app_id, appointment_data_id, resource_id, resource_name,
					 period_text, creator_name, department, status_name, appointment_time, sign_time)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
				ON CONFLICT (user_id, app_id) DO NOTHING
			`, userID, rec.AppID, rec.AppointmentDataID, rec.ResourceID, rec.ResourceName,
				rec.PeriodText, rec.CreatorName, rec.Department, rec.StatusName,
				rec.AppointmentTime, rec.SignTime)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns the stored snapshot, newest appointment first.
func (r *Repo) List(ctx context.Context, userID int64) ([]shuttle.RideRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT app_id, appointment_data_id, resource_id, resource_name,
		       period_text, creator_name, department, status_name, appointment_time, sign_time
		FROM ride_history WHERE user_id=$1
		ORDER BY appointment_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shuttle.RideRecord
	for rows.Next() {
		var rec shuttle.RideRecord
		var resourceID int64
		if err := rows.Scan(&rec.AppID, &rec.AppointmentDataID, &resourceID, &rec.ResourceName,
			&rec.PeriodText, &rec.CreatorName, &rec.Department, &rec.StatusName,
			&rec.AppointmentTime, &rec.SignTime); err != nil {
			return nil, err
		}
		rec.ResourceID = int(resourceID)
		out = append(out, rec)
	}
	return out, rows.Err()
}
