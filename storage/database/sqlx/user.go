package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/core/user"
)

const userTable = `"user"`

var userColumns = []string{"id", "username", "email", "role", "password_hash", "created_at", "updated_at"}

type userRow struct {
	ID           string      `db:"id"`
	Username     string      `db:"username"`
	Email        null.String `db:"email"`
	Role         string      `db:"role"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r userRow) unwrap() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email.String,
		Role:         policy.Role(r.Role),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string) error {
	cond := sq.Or{sq.Eq{"username": username}}
	if email != "" {
		cond = append(cond, sq.Eq{"email": email})
	}
	query, args, err := psql.Select("username", "email").From(userTable).Where(cond).Limit(1).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var taken struct {
		Username string      `db:"username"`
		Email    null.String `db:"email"`
	}
	if err := repo.db.GetContext(ctx, &taken, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if taken.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert(userTable).Columns(userColumns...).Values(
		usr.ID, usr.Username, null.NewString(usr.Email, usr.Email != ""), string(usr.Role),
		usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok {
			if strings.Contains(constraint, "email") {
				return user.User{}, user.ErrEmailExists
			}
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var cond sq.Sqlizer
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		cond = sq.Eq{"id": filter.ID}
	case filter.Username != "":
		cond = sq.Eq{"username": filter.Username}
	case filter.Email != "":
		cond = sq.Eq{"email": filter.Email}
	case filter.UsernameOrEmail != "":
		cond = sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}}
	default:
		return user.User{}, user.ErrNotFound
	}

	query, args, err := psql.Select(userColumns...).From(userTable).Where(cond).Limit(1).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.unwrap(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	qb := psql.Select(userColumns...).From(userTable).OrderBy("created_at DESC", "id DESC")
	// users with Username or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		qb = qb.Where(sq.Or{sq.ILike{"username": val}, sq.ILike{"email": val}})
	}
	if filter.Role != "" {
		qb = qb.Where(sq.Eq{"role": string(filter.Role)})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.unwrap())
	}
	return users, nil
}

func (repo *userRepository) SetUserPassword(ctx context.Context, id string, hash []byte, updatedAt time.Time) (user.User, error) {
	if !isUUID(id) {
		return user.User{}, user.ErrNotFound
	}
	query, args, err := psql.Update(userTable).
		Set("password_hash", hash).
		Set("updated_at", updatedAt.UTC()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user password")
	}
	return row.unwrap(), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	if !isUUID(id) {
		return user.ErrNotFound
	}
	query, args, err := psql.Delete(userTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return execOne(ctx, repo.db, user.ErrNotFound, "deleting user", query, args...)
}
