package boltrepos

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/campusboard/core/auth"
)

type sessionRepository struct {
	db *bolt.DB
}

var _ auth.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *bolt.DB) auth.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess auth.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return repo.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(sessionBucket), sess.ID, sess)
	})
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (auth.Session, error) {
	if err := ctx.Err(); err != nil {
		return auth.Session{}, err
	}
	var sess auth.Session
	err := repo.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(sessionBucket), id, &sess)
		if err != nil {
			return err
		}
		if !found {
			return auth.ErrSessionNotFound
		}
		return nil
	})
	return sess, err
}

func (repo *sessionRepository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return repo.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		var sess auth.Session
		found, err := get(b, id, &sess)
		if err != nil || !found || sess.IsRevoked() {
			return err
		}
		sess.RevokedAt = at
		return put(b, id, sess)
	})
}

func (repo *sessionRepository) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return repo.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		var revoked []auth.Session
		err := each(b, func() interface{} { return new(auth.Session) }, func(rec interface{}) error {
			sess := *rec.(*auth.Session)
			if sess.UserID == userID && !sess.IsRevoked() {
				sess.RevokedAt = at
				revoked = append(revoked, sess)
			}
			return nil
		})
		if err != nil {
			return err
		}
		// bolt forbids writes while iterating
		for _, sess := range revoked {
			if err := put(b, sess.ID, sess); err != nil {
				return err
			}
		}
		return nil
	})
}

func (repo *sessionRepository) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var stale [][]byte
	err := repo.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		err := each(b, func() interface{} { return new(auth.Session) }, func(rec interface{}) error {
			if sess := rec.(*auth.Session); !sess.IsActive(now) {
				stale = append(stale, []byte(sess.ID))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}
