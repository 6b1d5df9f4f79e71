package database

import (
	"context"
	"database/sql"

	"zapisnik/internal/model"
)

// GetClientByTelegramID returns a client by telegram id, nil if unknown.
func (db *DB) GetClientByTelegramID(ctx context.Context, telegramID int64) (*model.Client, error) {
	var c model.Client
	var username sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT id, telegram_id, username, full_name, created_at FROM clients WHERE telegram_id = ?",
		telegramID,
	).Scan(&c.ID, &c.TelegramID, &username, &c.FullName, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Username = username.String
	return &c, nil
}

// GetClient returns a client by primary key, nil if unknown.
func (db *DB) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	var c model.Client
	var username sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT id, telegram_id, username, full_name, created_at FROM clients WHERE id = ?",
		id,
	).Scan(&c.ID, &c.TelegramID, &username, &c.FullName, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Username = username.String
	return &c, nil
}

// UpsertClient creates the client on first contact and refreshes the
// username/full name on later ones. Returns the stored row.
func (db *DB) UpsertClient(ctx context.Context, telegramID int64, username, fullName string) (*model.Client, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO clients (telegram_id, username, full_name)
		VALUES (?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name`,
		telegramID, username, fullName,
	)
	if err != nil {
		return nil, err
	}
	return db.GetClientByTelegramID(ctx, telegramID)
}
