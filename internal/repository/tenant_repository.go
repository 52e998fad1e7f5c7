package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tenantry/tenantry/internal/database"
	"github.com/tenantry/tenantry/internal/model"
)

const tenantColumns = `id, tenant_code, tenant_name, tenant_type, status, start_date, close_date,
	timezone, locale, created_at, updated_at`

// TenantRepository handles tenant and tenant-membership persistence
type TenantRepository struct {
	db database.Querier
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db database.Querier) *TenantRepository {
	return &TenantRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *TenantRepository) WithTx(tx *sql.Tx) *TenantRepository {
	return &TenantRepository{db: tx}
}

// Create inserts a new tenant
func (r *TenantRepository) Create(ctx context.Context, t *model.Tenant) error {
	query := `
		INSERT INTO tenants (id, tenant_code, tenant_name, tenant_type, status, start_date,
		                     timezone, locale, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.TenantCode,
		t.TenantName,
		t.TenantType,
		t.Status,
		t.StartDate,
		t.Timezone,
		t.Locale,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", translateDBError(err))
	}
	return nil
}

// GetByName retrieves a tenant by its unique name
func (r *TenantRepository) GetByName(ctx context.Context, name string) (*model.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE tenant_name = $1`
	return scanTenant(r.db.QueryRowContext(ctx, query, name))
}

// ExistsByName checks if a tenant with the given name exists
func (r *TenantRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE tenant_name = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tenant existence: %w", err)
	}
	return exists, nil
}

// LinkUser creates a tenant-user membership row
func (r *TenantRepository) LinkUser(ctx context.Context, tu *model.TenantUser) error {
	query := `
		INSERT INTO tenant_users (id, tenant_id, user_id, status, is_primary, is_admin,
		                          start_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		tu.ID,
		tu.TenantID,
		tu.UserID,
		tu.Status,
		tu.IsPrimary,
		tu.IsAdmin,
		tu.StartDate,
		tu.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to link tenant user: %w", translateDBError(err))
	}
	return nil
}

func scanTenant(row *sql.Row) (*model.Tenant, error) {
	var t model.Tenant
	err := row.Scan(
		&t.ID,
		&t.TenantCode,
		&t.TenantName,
		&t.TenantType,
		&t.Status,
		&t.StartDate,
		&t.CloseDate,
		&t.Timezone,
		&t.Locale,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	return &t, nil
}
