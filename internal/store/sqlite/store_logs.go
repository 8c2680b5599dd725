package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wakegate/wakegate/internal/model"
)

// AppendLog writes one append-only action log entry. Entries are never
// updated or deleted by the gateway.
func (s *Store) AppendLog(ctx context.Context, e model.ActionLogEntry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO logs(timestamp, domain, action, status, details, client_ip)
VALUES(?, ?, ?, ?, ?, ?)`,
		ts.UTC(), e.Domain, e.Action, nullableString(e.Status), nullableString(e.Details), nullableString(e.ClientIP))
	return err
}

// RecentLogs returns the newest action log entries, most recent first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]model.ActionLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, timestamp, domain, action, status, details, client_ip
FROM logs
ORDER BY timestamp DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ActionLogEntry
	for rows.Next() {
		var e model.ActionLogEntry
		var status, details, clientIP sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Domain, &e.Action, &status, &details, &clientIP); err != nil {
			return nil, err
		}
		e.Status = status.String
		e.Details = details.String
		e.ClientIP = clientIP.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendTestingAccess writes one testing access log entry.
func (s *Store) AppendTestingAccess(ctx context.Context, project, clientIP, action string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO testing_access_logs(timestamp, project_name, client_ip, action)
VALUES(?, ?, ?, ?)`,
		time.Now().UTC(), project, nullableString(clientIP), action)
	return err
}

// RecentTestingAccess returns the newest access entries for one project,
// most recent first. An empty project selects across all projects.
func (s *Store) RecentTestingAccess(ctx context.Context, project string, limit int) ([]model.TestingAccessEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
SELECT id, timestamp, project_name, client_ip, action
FROM testing_access_logs`
	args := []any{}
	if project != "" {
		query += ` WHERE project_name = ?`
		args = append(args, project)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.TestingAccessEntry
	for rows.Next() {
		var e model.TestingAccessEntry
		var clientIP sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Project, &clientIP, &e.Action); err != nil {
			return nil, err
		}
		e.ClientIP = clientIP.String
		out = append(out, e)
	}
	return out, rows.Err()
}
