package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/carwash-booking/internal/model"
	"github.com/iliyamo/carwash-booking/internal/utils"
)

// ProfileRepo reads and writes the `profiles` table.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileColumns = "id,email,password_hash,full_name,phone,role,subscribed,created_at,updated_at"

func scanProfile(row interface{ Scan(...any) error }) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Phone, &p.Role, &p.Subscribed, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a profile and returns its ID.  The password is hashed
// with bcrypt at the given cost.
func (r *ProfileRepo) Create(ctx context.Context, p model.Profile, password string, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO profiles (email, password_hash, full_name, phone, role, subscribed) VALUES (?,?,?,?,?,?)",
		email, hash, p.FullName, p.Phone, p.Role, p.Subscribed)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a profile by normalized email.
func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := scanProfile(r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE email=? LIMIT 1", email))
	return p, notFound(err)
}

// GetByID fetches a profile by id.
func (r *ProfileRepo) GetByID(ctx context.Context, id uint64) (model.Profile, error) {
	p, err := scanProfile(r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id=? LIMIT 1", id))
	return p, notFound(err)
}

// ListSubscribed returns every profile that opted in to broadcasts, in id
// order.
func (r *ProfileRepo) ListSubscribed(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE subscribed = TRUE ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetSubscribed toggles newsletter consent.
func (r *ProfileRepo) SetSubscribed(ctx context.Context, id uint64, subscribed bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE profiles SET subscribed=? WHERE id=?", subscribed, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
