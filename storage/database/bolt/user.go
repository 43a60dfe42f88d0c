package boltrepos

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/core/user"
)

// userRecord keeps the password hash, which user.User never serializes.
type userRecord struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email,omitempty"`
	Role         policy.Role `json:"role"`
	PasswordHash []byte      `json:"password_hash"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func newUserRecord(usr user.User) userRecord {
	return userRecord{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	}
}

func (r userRecord) unwrap() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	db *bolt.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *bolt.DB) user.Repository {
	return &userRepository{db: db}
}

func allUsers(tx *bolt.Tx) ([]user.User, error) {
	var users []user.User
	err := each(tx.Bucket(userBucket), func() interface{} { return new(userRecord) }, func(rec interface{}) error {
		users = append(users, rec.(*userRecord).unwrap())
		return nil
	})
	return users, err
}

func checkUniqueness(users []user.User, username, email string) error {
	for _, u := range users {
		if u.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && u.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return repo.db.View(func(tx *bolt.Tx) error {
		users, err := allUsers(tx)
		if err != nil {
			return err
		}
		return checkUniqueness(users, username, email)
	})
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	err := repo.db.Update(func(tx *bolt.Tx) error {
		users, err := allUsers(tx)
		if err != nil {
			return err
		}
		if err := checkUniqueness(users, usr.Username, usr.Email); err != nil {
			return err
		}
		return put(tx.Bucket(userBucket), usr.ID, newUserRecord(usr))
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	var usr user.User
	err := repo.db.View(func(tx *bolt.Tx) error {
		if filter.ID != "" {
			var rec userRecord
			found, err := get(tx.Bucket(userBucket), filter.ID, &rec)
			if err != nil {
				return err
			}
			if !found {
				return user.ErrNotFound
			}
			usr = rec.unwrap()
			return nil
		}

		users, err := allUsers(tx)
		if err != nil {
			return err
		}
		for _, u := range users {
			var match bool
			switch {
			case filter.Username != "":
				match = u.Username == filter.Username
			case filter.Email != "":
				match = u.Email == filter.Email
			case filter.UsernameOrEmail != "":
				match = u.Username == filter.UsernameOrEmail || (u.Email != "" && u.Email == filter.UsernameOrEmail)
			}
			if match {
				usr = u
				return nil
			}
		}
		return user.ErrNotFound
	})
	return usr, err
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users := make([]user.User, 0)
	err := repo.db.View(func(tx *bolt.Tx) error {
		all, err := allUsers(tx)
		if err != nil {
			return err
		}
		for _, u := range all {
			if filter.Search != "" &&
				!strings.Contains(strings.ToLower(u.Username), filter.Search) &&
				!strings.Contains(strings.ToLower(u.Email), filter.Search) {
				continue
			}
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		return newerFirst(users[i].CreatedAt, users[j].CreatedAt, users[i].ID, users[j].ID)
	})
	return users, nil
}

func (repo *userRepository) SetUserPassword(ctx context.Context, id string, hash []byte, updatedAt time.Time) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	var rec userRecord
	err := repo.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(userBucket)
		found, err := get(b, id, &rec)
		if err != nil {
			return err
		}
		if !found {
			return user.ErrNotFound
		}
		rec.PasswordHash = hash
		rec.UpdatedAt = updatedAt
		return put(b, id, rec)
	})
	if err != nil {
		return user.User{}, err
	}
	return rec.unwrap(), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return repo.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(userBucket)
		if b.Get([]byte(id)) == nil {
			return user.ErrNotFound
		}
		return errors.Wrap(b.Delete([]byte(id)), "deleting user")
	})
}
