// Package shared sets up what the app binaries have in common.
package shared

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/storage/database"
	"github.com/trezcool/gradebook/storage/database/bolt"
	"github.com/trezcool/gradebook/storage/database/inmem"
	"github.com/trezcool/gradebook/storage/database/sqlx"
)

// Database engines
const (
	EngineInMem    = "inmem"
	EnginePostgres = "postgres"
	EngineBolt     = "bolt"
)

// Store is the grade.Repository of the configured engine.
type Store struct {
	grade.Repository
	DB    *sqlx.DB // postgres engine only
	close func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore opens the repository of conf.Database.Engine.
// With postgres, the role and database are created if needed, and migrated up when migrate is set.
func OpenStore(conf *core.Config, migrate bool) (*Store, error) {
	switch conf.Database.Engine {
	case "", EngineInMem:
		db, err := inmemdb.Open()
		if err != nil {
			return nil, errors.Wrap(err, "opening inmem database")
		}
		return &Store{Repository: inmemdb.NewGradeRepository(db)}, nil

	case EngineBolt:
		st, err := boltdb.Open(conf.Database.BoltPath)
		if err != nil {
			return nil, errors.Wrapf(err, "opening bolt database %s", conf.Database.BoltPath)
		}
		return &Store{Repository: st, close: st.Close}, nil

	case EnginePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err = database.Migrate(db.DB, database.MigrateUp, 0); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &Store{Repository: sqlxrepos.NewGradeRepository(db), DB: db, close: db.Close}, nil

	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}
