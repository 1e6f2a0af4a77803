package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/carwash-booking/internal/model"
)

// CatalogRepo reads and maintains the wash catalog: service packages,
// add-ons and membership plans.  The booking flow only reads; writes come
// from admin CRUD endpoints.  Deletes are soft (active=false) because
// bookings keep referencing old package ids.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const catalogColumns = "id, slug, name, COALESCE(description,''), price, duration_min, category, active, created_at, updated_at"

// catalogTable restricts table names interpolated into queries.
type catalogTable string

const (
	servicesTable catalogTable = "service_packages"
	addOnsTable   catalogTable = "add_ons"
)

func (r *CatalogRepo) list(ctx context.Context, table catalogTable, activeOnly bool) ([]model.ServicePackage, error) {
	q := "SELECT " + catalogColumns + " FROM " + string(table)
	if activeOnly {
		q += " WHERE active = TRUE"
	}
	q += " ORDER BY price, id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ServicePackage
	for rows.Next() {
		var p model.ServicePackage
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Price, &p.DurationMin, &p.Category, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) get(ctx context.Context, table catalogTable, id uint64) (model.ServicePackage, error) {
	var p model.ServicePackage
	err := r.db.QueryRowContext(ctx, "SELECT "+catalogColumns+" FROM "+string(table)+" WHERE id = ?", id).
		Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Price, &p.DurationMin, &p.Category, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, notFound(err)
}

func (r *CatalogRepo) create(ctx context.Context, table catalogTable, p *model.ServicePackage) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO "+string(table)+" (slug, name, description, price, duration_min, category, active) VALUES (?,?,?,?,?,?,?)",
		p.Slug, p.Name, p.Description, p.Price, p.DurationMin, p.Category, p.Active)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *CatalogRepo) update(ctx context.Context, table catalogTable, p model.ServicePackage) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+string(table)+" SET slug=?, name=?, description=?, price=?, duration_min=?, category=?, active=? WHERE id=?",
		p.Slug, p.Name, p.Description, p.Price, p.DurationMin, p.Category, p.Active, p.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	return requireOneRow(ctx, r.db, res, string(table), p.ID)
}

func (r *CatalogRepo) deactivate(ctx context.Context, table catalogTable, id uint64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE "+string(table)+" SET active = FALSE WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireOneRow(ctx, r.db, res, string(table), id)
}

// requireOneRow distinguishes "row missing" from "row unchanged" after an
// UPDATE, since MySQL reports zero affected rows for both.
func requireOneRow(ctx context.Context, db *sql.DB, res sql.Result, table string, id uint64) error {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	return notFound(err)
}

// ListServices returns service packages, cheapest first.
func (r *CatalogRepo) ListServices(ctx context.Context, activeOnly bool) ([]model.ServicePackage, error) {
	return r.list(ctx, servicesTable, activeOnly)
}

// GetService fetches a single package regardless of its active flag.
func (r *CatalogRepo) GetService(ctx context.Context, id uint64) (model.ServicePackage, error) {
	return r.get(ctx, servicesTable, id)
}

func (r *CatalogRepo) CreateService(ctx context.Context, p *model.ServicePackage) error {
	return r.create(ctx, servicesTable, p)
}

func (r *CatalogRepo) UpdateService(ctx context.Context, p model.ServicePackage) error {
	return r.update(ctx, servicesTable, p)
}

func (r *CatalogRepo) DeactivateService(ctx context.Context, id uint64) error {
	return r.deactivate(ctx, servicesTable, id)
}

// ListAddOns returns add-ons, cheapest first.
func (r *CatalogRepo) ListAddOns(ctx context.Context, activeOnly bool) ([]model.AddOn, error) {
	rows, err := r.list(ctx, addOnsTable, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]model.AddOn, 0, len(rows))
	for _, p := range rows {
		out = append(out, model.AddOn(p))
	}
	return out, nil
}

// GetAddOns loads the add-ons with the given ids.  Missing ids are simply
// absent from the result; callers compare lengths.
func (r *CatalogRepo) GetAddOns(ctx context.Context, ids []uint64) ([]model.AddOn, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	q := "SELECT " + catalogColumns + " FROM add_ons WHERE id IN (?" + strings.Repeat(",?", len(ids)-1) + ") ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AddOn
	for rows.Next() {
		var a model.AddOn
		if err := rows.Scan(&a.ID, &a.Slug, &a.Name, &a.Description, &a.Price, &a.DurationMin, &a.Category, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreateAddOn(ctx context.Context, a *model.AddOn) error {
	p := model.ServicePackage(*a)
	if err := r.create(ctx, addOnsTable, &p); err != nil {
		return err
	}
	a.ID = p.ID
	return nil
}

func (r *CatalogRepo) UpdateAddOn(ctx context.Context, a model.AddOn) error {
	return r.update(ctx, addOnsTable, model.ServicePackage(a))
}

func (r *CatalogRepo) DeactivateAddOn(ctx context.Context, id uint64) error {
	return r.deactivate(ctx, addOnsTable, id)
}

const planColumns = "id, kind, name, COALESCE(description,''), price_monthly, price_yearly, stripe_price_monthly, stripe_price_yearly, active"

func scanPlan(row interface{ Scan(...any) error }) (model.Plan, error) {
	var p model.Plan
	err := row.Scan(&p.ID, &p.Kind, &p.Name, &p.Description, &p.PriceMonthly, &p.PriceYearly, &p.StripePriceMonthly, &p.StripePriceYearly, &p.Active)
	return p, err
}

// ListPlans returns active membership plans, optionally of one kind.
func (r *CatalogRepo) ListPlans(ctx context.Context, kind string) ([]model.Plan, error) {
	q := "SELECT " + planColumns + " FROM subscription_plans WHERE active = TRUE"
	var args []any
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, kind)
	}
	q += " ORDER BY price_monthly, id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPlan fetches a plan by id.
func (r *CatalogRepo) GetPlan(ctx context.Context, id uint64) (model.Plan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM subscription_plans WHERE id = ?", id))
	return p, notFound(err)
}
