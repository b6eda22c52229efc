package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"trackitnow-backend/internal/db"
	"trackitnow-backend/internal/types"
)

// DocumentStore is the set of user, parcel and notification operations the
// services rely on. DatabaseStore and MemoryDocumentStore both implement it.
type DocumentStore interface {
	CountUsers(ctx context.Context) (int64, error)
	FindUsersByRole(ctx context.Context, role string) ([]types.User, error)

	CountParcels(ctx context.Context) (int64, error)
	FindParcelByCode(ctx context.Context, code string) (*types.Parcel, error)
	CountParcelsByStatus(ctx context.Context) ([]types.StatusCount, error)
	RecentParcels(ctx context.Context, limit int) ([]types.Parcel, error)

	CreateNotifications(ctx context.Context, ns ...types.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]types.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteNotificationsForParcel(ctx context.Context, parcelID string) (int64, error)
}

// DatabaseStore stores users, parcels and notifications in PostgreSQL
type DatabaseStore struct {
	db *db.DB
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

var _ DocumentStore = (*DatabaseStore)(nil)

// CountUsers returns the number of registered users
func (ds *DatabaseStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := ds.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// FindUsersByRole lists users holding role; an empty role lists everyone
func (ds *DatabaseStore) FindUsersByRole(ctx context.Context, role string) ([]types.User, error) {
	query := `SELECT id, name, email, role, created_at FROM users`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY created_at`

	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountParcels returns the number of registered parcels
func (ds *DatabaseStore) CountParcels(ctx context.Context) (int64, error) {
	var n int64
	if err := ds.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parcels`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count parcels: %w", err)
	}
	return n, nil
}

const parcelColumns = `id, tracking_code, sender_name, recipient_name, recipient_address,
	status, history, latitude, longitude, client_id, created_at, updated_at`

// FindParcelByCode returns the parcel with the given tracking code, or ErrNotFound
func (ds *DatabaseStore) FindParcelByCode(ctx context.Context, code string) (*types.Parcel, error) {
	row := ds.db.QueryRowContext(ctx,
		`SELECT `+parcelColumns+` FROM parcels WHERE tracking_code = $1`, code)
	p, err := scanParcel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parcel: %w", err)
	}
	return p, nil
}

// CountParcelsByStatus groups parcels by status, largest group first
func (ds *DatabaseStore) CountParcelsByStatus(ctx context.Context) ([]types.StatusCount, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT status, COUNT(*) AS n
		FROM parcels
		GROUP BY status
		ORDER BY n DESC, status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to group parcels by status: %w", err)
	}
	defer rows.Close()

	var out []types.StatusCount
	for rows.Next() {
		var sc types.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// RecentParcels returns the most recently created parcels, newest first
func (ds *DatabaseStore) RecentParcels(ctx context.Context, limit int) ([]types.Parcel, error) {
	rows, err := ds.db.QueryContext(ctx,
		`SELECT `+parcelColumns+` FROM parcels ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent parcels: %w", err)
	}
	defer rows.Close()

	var out []types.Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parcel: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParcel(row scanner) (*types.Parcel, error) {
	var (
		p        types.Parcel
		history  []byte
		lat, lon sql.NullFloat64
	)
	err := row.Scan(
		&p.ID,
		&p.TrackingCode,
		&p.SenderName,
		&p.RecipientName,
		&p.RecipientAddress,
		&p.Status,
		&history,
		&lat,
		&lon,
		&p.ClientID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.History); err != nil {
			return nil, fmt.Errorf("invalid history for parcel %s: %w", p.TrackingCode, err)
		}
	}
	if lat.Valid && lon.Valid {
		p.Position = &types.GPSPosition{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return &p, nil
}

// CreateNotifications inserts every notification in a single transaction
func (ds *DatabaseStore) CreateNotifications(ctx context.Context, ns ...types.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notifications (id, user_id, role, parcel_id, type, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare notification insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range ns {
		if _, err := stmt.ExecContext(ctx,
			n.ID, nullString(n.UserID), nullString(n.Role), nullString(n.ParcelID),
			n.Type, n.Message, n.Read, n.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to save notification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notifications: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first
func (ds *DatabaseStore) ListNotifications(ctx context.Context, userID string, limit int) ([]types.Notification, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT id, COALESCE(user_id, ''), COALESCE(role, ''), COALESCE(parcel_id, ''),
			type, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := []types.Notification{}
	for rows.Next() {
		var n types.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Role, &n.ParcelID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags a notification as read, or returns ErrNotFound
func (ds *DatabaseStore) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := ds.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return requireAffected(res)
}

// DeleteNotification removes one notification, or returns ErrNotFound
func (ds *DatabaseStore) DeleteNotification(ctx context.Context, id string) error {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return requireAffected(res)
}

// DeleteNotificationsForParcel removes every notification attached to a parcel
func (ds *DatabaseStore) DeleteNotificationsForParcel(ctx context.Context, parcelID string) (int64, error) {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM notifications WHERE parcel_id = $1`, parcelID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete parcel notifications: %w", err)
	}
	return res.RowsAffected()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
