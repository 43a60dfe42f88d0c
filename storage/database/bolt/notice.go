package boltrepos

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/campusboard/core/notice"
)

type noticeRepository struct {
	db *bolt.DB
}

var _ notice.Repository = (*noticeRepository)(nil) // interface compliance check

func NewNoticeRepository(db *bolt.DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	if err := ctx.Err(); err != nil {
		return notice.Notice{}, err
	}
	err := repo.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(noticeBucket), n.ID, n)
	})
	if err != nil {
		return notice.Notice{}, errors.Wrap(err, "inserting notice")
	}
	return n, nil
}

func (repo *noticeRepository) QueryNotices(ctx context.Context, category notice.Category) ([]notice.Notice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	notices := make([]notice.Notice, 0)
	err := repo.db.View(func(tx *bolt.Tx) error {
		return each(tx.Bucket(noticeBucket), func() interface{} { return new(notice.Notice) }, func(rec interface{}) error {
			n := *rec.(*notice.Notice)
			if category == "" || n.Category == category {
				n.CreatedAt = n.CreatedAt.UTC()
				notices = append(notices, n)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(notices, func(i, j int) bool {
		return newerFirst(notices[i].CreatedAt, notices[j].CreatedAt, notices[i].ID, notices[j].ID)
	})
	return notices, nil
}

func (repo *noticeRepository) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	if err := ctx.Err(); err != nil {
		return notice.Notice{}, err
	}
	var n notice.Notice
	err := repo.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(noticeBucket), id, &n)
		if err != nil {
			return err
		}
		if !found {
			return notice.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return notice.Notice{}, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return n, nil
}

func (repo *noticeRepository) DeleteNotice(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return repo.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(noticeBucket)
		if b.Get([]byte(id)) == nil {
			return notice.ErrNotFound
		}
		return errors.Wrap(b.Delete([]byte(id)), "deleting notice")
	})
}
