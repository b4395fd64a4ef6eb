// Package storage opens the repositories of the configured database engine.
package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/storage/database"
	dummydb "github.com/trezcool/admissions/storage/database/dummy"
	mongodb "github.com/trezcool/admissions/storage/database/mongo"
	pgrepos "github.com/trezcool/admissions/storage/database/postgres"
)

type Storage struct {
	Accounts     account.Repository
	Applications admission.Repository
	Allocator    admission.Allocator

	SQL   *sql.DB // postgres only, for migrations
	close func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to conf.Database.Engine. With `migrate`, a postgres database is created
// if needed and migrated up.
func Open(ctx context.Context, conf *core.Config, migrate bool) (*Storage, error) {
	switch conf.Database.Engine {
	case core.EnginePostgres:
		if migrate {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, err
			}
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err = database.Migrate(db.DB); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		appRepo := pgrepos.NewApplicationRepository(db)
		return &Storage{
			Accounts:     pgrepos.NewAccountRepository(db),
			Applications: appRepo,
			Allocator:    appRepo,
			SQL:          db.DB,
			close:        db.Close,
		}, nil

	case core.EngineMongo:
		db, err := mongodb.Connect(ctx, conf)
		if err != nil {
			return nil, err
		}
		appRepo := mongodb.NewApplicationRepository(db)
		return &Storage{
			Accounts:     mongodb.NewAccountRepository(db),
			Applications: appRepo,
			Allocator:    appRepo,
			close:        func() error { return mongodb.Disconnect(context.Background(), db) },
		}, nil

	case core.EngineMemory:
		db, err := dummydb.Open()
		if err != nil {
			return nil, err
		}
		return NewMemory(db), nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

// NewMemory wraps an in-memory database, eg: for tests.
func NewMemory(db *dummydb.DB) *Storage {
	appRepo := dummydb.NewApplicationRepository(db)
	return &Storage{
		Accounts:     dummydb.NewAccountRepository(db),
		Applications: appRepo,
		Allocator:    appRepo,
	}
}
