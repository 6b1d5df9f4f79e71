package database

import (
	"context"
	"database/sql"

	"zapisnik/internal/model"
)

// GetService returns a service by id, nil if not found.
func (db *DB) GetService(ctx context.Context, id int64) (*model.Service, error) {
	var s model.Service
	var desc sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT id, name, duration_minutes, price, description, active FROM services WHERE id = ?",
		id,
	).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &desc, &s.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Description = desc.String
	return &s, nil
}

// GetServiceByName returns a service by its unique name, nil if not found.
func (db *DB) GetServiceByName(ctx context.Context, name string) (*model.Service, error) {
	var s model.Service
	var desc sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT id, name, duration_minutes, price, description, active FROM services WHERE name = ?",
		name,
	).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &desc, &s.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Description = desc.String
	return &s, nil
}

// ListActiveServices returns active services ordered by name.
func (db *DB) ListActiveServices(ctx context.Context) ([]model.Service, error) {
	return db.listServices(ctx, "WHERE active = 1")
}

// ListServices returns all services ordered by name, inactive included.
func (db *DB) ListServices(ctx context.Context) ([]model.Service, error) {
	return db.listServices(ctx, "")
}

func (db *DB) listServices(ctx context.Context, where string) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, duration_minutes, price, description, active FROM services "+where+" ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &desc, &s.Active); err != nil {
			return nil, err
		}
		s.Description = desc.String
		services = append(services, s)
	}
	return services, rows.Err()
}

// CreateService inserts a new service and sets its id.
func (db *DB) CreateService(ctx context.Context, s *model.Service) error {
	res, err := db.ExecContext(ctx,
		"INSERT INTO services (name, duration_minutes, price, description, active) VALUES (?, ?, ?, ?, ?)",
		s.Name, s.DurationMinutes, s.Price, s.Description, s.Active,
	)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

// UpdateService updates all mutable fields of a service.
func (db *DB) UpdateService(ctx context.Context, s *model.Service) error {
	_, err := db.ExecContext(ctx,
		"UPDATE services SET name = ?, duration_minutes = ?, price = ?, description = ?, active = ? WHERE id = ?",
		s.Name, s.DurationMinutes, s.Price, s.Description, s.Active, s.ID,
	)
	return err
}

// DeactivateService soft-deletes a service. Rows are never removed so
// past appointments keep their reference.
func (db *DB) DeactivateService(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, "UPDATE services SET active = 0 WHERE id = ?", id)
	return err
}
