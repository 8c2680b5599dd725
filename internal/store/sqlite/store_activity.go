package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wakegate/wakegate/internal/model"
)

// TouchActivity upserts the last-activity timestamp for a domain. Writes
// are last-write-wins by wall-clock value; concurrent touches of the same
// domain are tolerated because the timestamp only moves forward in practice.
func (s *Store) TouchActivity(ctx context.Context, domain string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO activity(domain, last_activity) VALUES(?, ?)
ON CONFLICT(domain) DO UPDATE SET last_activity = excluded.last_activity`,
		domain, now.UTC())
	return err
}

// LastActivity fetches the durable last-activity timestamp. The in-memory
// fast path lives in the activity tracker, not here.
func (s *Store) LastActivity(ctx context.Context, domain string) (time.Time, bool, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx, `SELECT last_activity FROM activity WHERE domain = ?`, domain).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// RecordWake stamps last_wol and advances boot_count by exactly one. Called
// only after a successful actuation; failed attempts leave the record
// untouched.
func (s *Store) RecordWake(ctx context.Context, domain string, now time.Time) error {
	now = now.UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO activity(domain, last_activity, last_wol, boot_count) VALUES(?, ?, ?, 1)
ON CONFLICT(domain) DO UPDATE SET last_wol = excluded.last_wol, boot_count = boot_count + 1`,
		domain, now, now)
	return err
}

// ActivityRecord reads one domain's activity bookkeeping.
func (s *Store) ActivityRecord(ctx context.Context, domain string) (model.ActivityRecord, error) {
	var rec model.ActivityRecord
	var lastWOL sql.NullTime
	err := s.db.QueryRowContext(ctx, `
SELECT domain, last_activity, last_wol, boot_count
FROM activity
WHERE domain = ?`, domain).Scan(&rec.Domain, &rec.LastActivity, &lastWOL, &rec.BootCount)
	if err != nil {
		return model.ActivityRecord{}, err
	}
	if lastWOL.Valid {
		t := lastWOL.Time
		rec.LastWOL = &t
	}
	return rec, nil
}

// ListActivity returns every activity record ordered by domain name.
func (s *Store) ListActivity(ctx context.Context) ([]model.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT domain, last_activity, last_wol, boot_count
FROM activity
ORDER BY domain ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ActivityRecord
	for rows.Next() {
		var rec model.ActivityRecord
		var lastWOL sql.NullTime
		if err := rows.Scan(&rec.Domain, &rec.LastActivity, &lastWOL, &rec.BootCount); err != nil {
			return nil, err
		}
		if lastWOL.Valid {
			t := lastWOL.Time
			rec.LastWOL = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
