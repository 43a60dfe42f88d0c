package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/campusboard/core/auth"
)

type sessionRepository struct {
	db *sessionTable
}

var _ auth.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) auth.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess auth.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[sess.ID] = sess
	return nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (auth.Session, error) {
	if err := ctx.Err(); err != nil {
		return auth.Session{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return sess, nil
	}
	return auth.Session{}, auth.ErrSessionNotFound
}

func (repo *sessionRepository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	if sess, ok := repo.db.table[id]; ok && !sess.IsRevoked() {
		sess.RevokedAt = at
		repo.db.table[id] = sess
	}
	return nil
}

func (repo *sessionRepository) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, sess := range repo.db.table {
		if sess.UserID == userID && !sess.IsRevoked() {
			sess.RevokedAt = at
			repo.db.table[id] = sess
		}
	}
	return nil
}

func (repo *sessionRepository) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for id, sess := range repo.db.table {
		if !sess.IsActive(now) {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}
