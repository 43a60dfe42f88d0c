package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/policy"
)

const sessionTable = "session"

var sessionColumns = []string{"id", "user_id", "role", "issued_at", "expires_at", "revoked_at"}

type sessionRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	IssuedAt  time.Time `db:"issued_at"`
	ExpiresAt time.Time `db:"expires_at"`
	RevokedAt null.Time `db:"revoked_at"`
}

func (r sessionRow) unwrap() auth.Session {
	sess := auth.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		Role:      policy.Role(r.Role),
		IssuedAt:  r.IssuedAt.UTC(),
		ExpiresAt: r.ExpiresAt.UTC(),
	}
	if r.RevokedAt.Valid {
		sess.RevokedAt = r.RevokedAt.Time.UTC()
	}
	return sess
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ auth.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) auth.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess auth.Session) error {
	query, args, err := psql.Insert(sessionTable).Columns(sessionColumns...).Values(
		sess.ID, sess.UserID, string(sess.Role), sess.IssuedAt.UTC(), sess.ExpiresAt.UTC(),
		null.NewTime(sess.RevokedAt.UTC(), sess.IsRevoked()),
	).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "inserting session")
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (auth.Session, error) {
	if !isUUID(id) {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	query, args, err := psql.Select(sessionColumns...).From(sessionTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return auth.Session{}, errors.Wrap(err, "building query")
	}
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return auth.Session{}, trapNoRowsErr(err, auth.ErrSessionNotFound, "finding session")
	}
	return row.unwrap(), nil
}

func (repo *sessionRepository) revoke(ctx context.Context, cond sq.Eq, at time.Time) error {
	query, args, err := psql.Update(sessionTable).
		Set("revoked_at", at.UTC()).
		Where(cond).
		Where(sq.Eq{"revoked_at": nil}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "revoking sessions")
}

func (repo *sessionRepository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	if !isUUID(id) {
		return nil
	}
	return repo.revoke(ctx, sq.Eq{"id": id}, at)
}

func (repo *sessionRepository) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	if !isUUID(userID) {
		return nil
	}
	return repo.revoke(ctx, sq.Eq{"user_id": userID}, at)
}

func (repo *sessionRepository) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	query, args, err := psql.Delete(sessionTable).
		Where(sq.Or{sq.NotEq{"revoked_at": nil}, sq.LtOrEq{"expires_at": now.UTC()}}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "purging sessions")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "purging sessions")
}
