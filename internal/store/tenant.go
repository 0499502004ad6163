package store

import (
	"database/sql"
	"errors"
)

// Tenant selects which backing database a request reads from.
type Tenant string

const (
	TenantAlAzhar Tenant = "al-azhar"
	TenantLestari Tenant = "lestari"
)

var ErrNoDatabase = errors.New("no database connection is configured")

// ParseTenant normalizes an untrusted tenant selector. Anything that is not
// literally "lestari" resolves to the al-azhar tenant, matching how every
// endpoint treats a missing or unknown tenant parameter.
func ParseTenant(raw string) Tenant {
	if raw == string(TenantLestari) {
		return TenantLestari
	}
	return TenantAlAzhar
}

// Tenants holds one connection per tenant. The lestari database is optional;
// when it is not configured, lestari requests fall back to the al-azhar pool.
type Tenants struct {
	alAzhar *sql.DB
	lestari *sql.DB
}

func NewTenants(alAzhar, lestari *sql.DB) *Tenants {
	return &Tenants{alAzhar: alAzhar, lestari: lestari}
}

// DB returns the connection backing the given tenant.
func (t *Tenants) DB(tenant Tenant) (*sql.DB, error) {
	if tenant == TenantLestari {
		if t.lestari != nil {
			return t.lestari, nil
		}
		if t.alAzhar != nil {
			return t.alAzhar, nil
		}
		return nil, ErrNoDatabase
	}
	if t.alAzhar != nil {
		return t.alAzhar, nil
	}
	if t.lestari != nil {
		return t.lestari, nil
	}
	return nil, ErrNoDatabase
}

// Close closes every distinct underlying connection.
func (t *Tenants) Close() {
	if t.alAzhar != nil {
		_ = t.alAzhar.Close()
	}
	if t.lestari != nil && t.lestari != t.alAzhar {
		_ = t.lestari.Close()
	}
}
