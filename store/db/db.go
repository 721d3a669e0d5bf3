package db

import (
	"github.com/pkg/errors"

	"github.com/schedwise/schedwise/internal/profile"
	"github.com/schedwise/schedwise/store"
	"github.com/schedwise/schedwise/store/db/postgres"
	"github.com/schedwise/schedwise/store/db/sqlite"
)

// NewDriver creates a store driver based on the profile.
// SQLite is the default and suits single-user local use; PostgreSQL serves
// shared deployments.
func NewDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", profile.Driver)
	}
}
