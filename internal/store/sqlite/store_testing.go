package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/wakegate/wakegate/internal/model"
)

// CreateTestingProject inserts a new testing project record.
func (s *Store) CreateTestingProject(ctx context.Context, p model.TestingProject) (model.TestingProject, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.HealthCheckPath == "" {
		p.HealthCheckPath = "/health"
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO testing_projects(name, display_name, port, password_hash, description, health_check_path, active, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.DisplayName, p.Port, p.PasswordHash, p.Description, p.HealthCheckPath, boolToInt(p.Active), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") ||
			strings.Contains(strings.ToLower(err.Error()), "primary key") {
			return model.TestingProject{}, model.ErrProjectExists
		}
		return model.TestingProject{}, err
	}
	return p, nil
}

// GetTestingProject fetches one project by name regardless of its active
// flag. Callers that only serve active projects must check Active.
func (s *Store) GetTestingProject(ctx context.Context, name string) (model.TestingProject, error) {
	var p model.TestingProject
	var active int
	err := s.db.QueryRowContext(ctx, `
SELECT name, display_name, port, password_hash, description, health_check_path, active, created_at, updated_at
FROM testing_projects
WHERE name = ?`, name).Scan(
		&p.Name, &p.DisplayName, &p.Port, &p.PasswordHash, &p.Description, &p.HealthCheckPath, &active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TestingProject{}, model.ErrProjectNotFound
	}
	if err != nil {
		return model.TestingProject{}, err
	}
	p.Active = active != 0
	return p, nil
}

// ListTestingProjects returns every project ordered by name.
func (s *Store) ListTestingProjects(ctx context.Context) ([]model.TestingProject, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, display_name, port, password_hash, description, health_check_path, active, created_at, updated_at
FROM testing_projects
ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.TestingProject
	for rows.Next() {
		var p model.TestingProject
		var active int
		if err := rows.Scan(&p.Name, &p.DisplayName, &p.Port, &p.PasswordHash, &p.Description, &p.HealthCheckPath, &active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Active = active != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateTestingProject replaces the mutable fields of an existing project.
// An empty PasswordHash keeps the stored credential.
func (s *Store) UpdateTestingProject(ctx context.Context, p model.TestingProject) error {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	if p.PasswordHash == "" {
		res, err = s.db.ExecContext(ctx, `
UPDATE testing_projects
SET display_name = ?, port = ?, description = ?, health_check_path = ?, active = ?, updated_at = ?
WHERE name = ?`,
			p.DisplayName, p.Port, p.Description, p.HealthCheckPath, boolToInt(p.Active), now, p.Name)
	} else {
		res, err = s.db.ExecContext(ctx, `
UPDATE testing_projects
SET display_name = ?, port = ?, password_hash = ?, description = ?, health_check_path = ?, active = ?, updated_at = ?
WHERE name = ?`,
			p.DisplayName, p.Port, p.PasswordHash, p.Description, p.HealthCheckPath, boolToInt(p.Active), now, p.Name)
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrProjectNotFound
	}
	return nil
}

// SetTestingProjectActive flips the soft-delete flag.
func (s *Store) SetTestingProjectActive(ctx context.Context, name string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE testing_projects SET active = ?, updated_at = ? WHERE name = ?`,
		boolToInt(active), time.Now().UTC(), name)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrProjectNotFound
	}
	return nil
}

// DeleteTestingProject hard-deletes a project record. Normal operation
// prefers deactivation; this path exists for cleanup.
func (s *Store) DeleteTestingProject(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM testing_projects WHERE name = ?`, name)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrProjectNotFound
	}
	return nil
}
