package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// VehicleRepo manages vehicles and their links to memberships.
type VehicleRepo struct {
	db *sql.DB
}

func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span several repositories.
func (r *VehicleRepo) DB() *sql.DB { return r.db }

const vehicleColumns = "id, user_id, year, make, model, trim, body_type, exterior_color, interior_color, license_plate, created_at"

func scanVehicle(row interface{ Scan(...any) error }) (model.Vehicle, error) {
	var (
		v      model.Vehicle
		userID sql.NullInt64
	)
	err := row.Scan(&v.ID, &userID, &v.Year, &v.Make, &v.Model, &v.Trim, &v.BodyType, &v.ExteriorColor, &v.InteriorColor, &v.LicensePlate, &v.CreatedAt)
	if userID.Valid {
		uid := uint64(userID.Int64)
		v.UserID = &uid
	}
	return v, err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertVehicle(ctx context.Context, ex execer, v *model.Vehicle) error {
	res, err := ex.ExecContext(ctx,
		`INSERT INTO vehicles (user_id, year, make, model, trim, body_type, exterior_color, interior_color, license_plate)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		v.UserID, v.Year, v.Make, v.Model, v.Trim, v.BodyType, v.ExteriorColor, v.InteriorColor, v.LicensePlate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// Create inserts a vehicle and populates its ID.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	return insertVehicle(ctx, r.db, v)
}

// CreateTx inserts a vehicle inside an existing transaction.
func (r *VehicleRepo) CreateTx(ctx context.Context, tx *sql.Tx, v *model.Vehicle) error {
	return insertVehicle(ctx, tx, v)
}

// GetByID fetches a vehicle.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (model.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRowContext(ctx, "SELECT "+vehicleColumns+" FROM vehicles WHERE id = ?", id))
	return v, notFound(err)
}

// ListByUser returns the vehicles owned by a user, newest first.
func (r *VehicleRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Vehicle, error) {
	return r.query(ctx, "SELECT "+vehicleColumns+" FROM vehicles WHERE user_id = ? ORDER BY id DESC", userID)
}

// ListBySubscription returns the vehicles linked to a membership.
func (r *VehicleRepo) ListBySubscription(ctx context.Context, subscriptionID uint64) ([]model.Vehicle, error) {
	return r.query(ctx,
		`SELECT v.id, v.user_id, v.year, v.make, v.model, v.trim, v.body_type, v.exterior_color, v.interior_color, v.license_plate, v.created_at
		 FROM vehicles v JOIN subscription_vehicles sv ON sv.vehicle_id = v.id
		 WHERE sv.subscription_id = ? ORDER BY v.id`, subscriptionID)
}

func (r *VehicleRepo) query(ctx context.Context, q string, args ...any) ([]model.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func linkVehicle(ctx context.Context, ex execer, subscriptionID, vehicleID uint64) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO subscription_vehicles (subscription_id, vehicle_id) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE vehicle_id = vehicle_id`,
		subscriptionID, vehicleID)
	return err
}

// Link attaches a vehicle to a membership.  Linking twice is a no-op.
func (r *VehicleRepo) Link(ctx context.Context, subscriptionID, vehicleID uint64) error {
	return linkVehicle(ctx, r.db, subscriptionID, vehicleID)
}

// Unlink detaches a vehicle from a membership.
func (r *VehicleRepo) Unlink(ctx context.Context, subscriptionID, vehicleID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM subscription_vehicles WHERE subscription_id = ? AND vehicle_id = ?", subscriptionID, vehicleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
