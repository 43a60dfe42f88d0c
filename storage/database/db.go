package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/assignment"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/user"
	"github.com/trezcool/campusboard/fs"
	boltrepos "github.com/trezcool/campusboard/storage/database/bolt"
	dummydb "github.com/trezcool/campusboard/storage/database/dummy"
	mongorepos "github.com/trezcool/campusboard/storage/database/mongo"
	sqlxrepos "github.com/trezcool/campusboard/storage/database/sqlx"
)

// Repositories bundles the stores of one engine.
type Repositories struct {
	Users       user.Repository
	Notices     notice.Repository
	Assignments assignment.Repository
	Sessions    auth.Repository

	// SQL is the postgres handle, nil for other engines.
	SQL *sql.DB

	close func() error
}

// Close releases the underlying connection.
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Open connects to the engine named by conf.Database.Engine, waits for it to answer and brings its schema up to date.
func Open(ctx context.Context, conf *core.Config) (*Repositories, error) {
	repos, err := Connect(ctx, conf)
	if err != nil {
		return nil, err
	}
	if repos.SQL != nil {
		if err := Migrate(repos.SQL, "up"); err != nil {
			_ = repos.Close()
			return nil, err
		}
	}
	return repos, nil
}

// Connect is Open without the postgres migrations.
func Connect(ctx context.Context, conf *core.Config) (*Repositories, error) {
	switch conf.Database.Engine {
	case core.EnginePostgres:
		db, err := OpenPostgres(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Users:       sqlxrepos.NewUserRepository(db),
			Notices:     sqlxrepos.NewNoticeRepository(db),
			Assignments: sqlxrepos.NewAssignmentRepository(db),
			Sessions:    sqlxrepos.NewSessionRepository(db),
			SQL:         db.DB,
			close:       db.Close,
		}, nil

	case core.EngineMongo:
		client, db, err := OpenMongo(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := mongorepos.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &Repositories{
			Users:       mongorepos.NewUserRepository(db),
			Notices:     mongorepos.NewNoticeRepository(db),
			Assignments: mongorepos.NewAssignmentRepository(db),
			Sessions:    mongorepos.NewSessionRepository(db),
			close:       func() error { return client.Disconnect(context.Background()) },
		}, nil

	case core.EngineBolt:
		db, err := OpenBolt(conf)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Users:       boltrepos.NewUserRepository(db),
			Notices:     boltrepos.NewNoticeRepository(db),
			Assignments: boltrepos.NewAssignmentRepository(db),
			Sessions:    boltrepos.NewSessionRepository(db),
			close:       db.Close,
		}, nil

	case core.EngineMemory:
		return NewMemory(dummydb.Open()), nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

// NewMemory wraps an in-memory database. Data is lost when the process exits.
func NewMemory(db *dummydb.DB) *Repositories {
	return &Repositories{
		Users:       dummydb.NewUserRepository(db),
		Notices:     dummydb.NewNoticeRepository(db),
		Assignments: dummydb.NewAssignmentRepository(db),
		Sessions:    dummydb.NewSessionRepository(db),
	}
}

// OpenPostgres opens the postgres database at conf.Database.URL and pings it.
func OpenPostgres(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", conf.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, conf.Database.PingAttempts, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMongo connects to the mongo deployment at conf.Database.URL and pings it.
func OpenMongo(ctx context.Context, conf *core.Config) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URL))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to mongo")
	}
	pingFn := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	if err := ping(ctx, conf.Database.PingAttempts, pingFn); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return client, client.Database(conf.Database.Name), nil
}

// OpenBolt opens the bolt file at conf.Database.URL.
func OpenBolt(conf *core.Config) (*bolt.DB, error) {
	timeout := conf.Database.QueryTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return boltrepos.Open(conf.Database.URL, timeout)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, maxAttempts int, pingFn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = pingFn(ctx); err == nil {
			return nil
		}
		if attempts == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Migrate runs the goose command (up, down, status, ...) against the embedded postgres migrations.
func Migrate(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err := goose.Run(command, db, appfs.MigrationsDir, args...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
