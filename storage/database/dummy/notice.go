package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/campusboard/core/notice"
)

type noticeRepository struct {
	db *noticeTable
}

var _ notice.Repository = (*noticeRepository)(nil) // interface compliance check

func NewNoticeRepository(db *DB) notice.Repository {
	return &noticeRepository{db: db.notice}
}

func (repo *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	if err := ctx.Err(); err != nil {
		return notice.Notice{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[n.ID] = n
	return n, nil
}

func (repo *noticeRepository) QueryNotices(ctx context.Context, category notice.Category) ([]notice.Notice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	notices := make([]notice.Notice, 0, len(repo.db.table))
	for _, n := range repo.db.table {
		if category == "" || n.Category == category {
			notices = append(notices, n)
		}
	}
	sort.Slice(notices, func(i, j int) bool {
		if notices[i].CreatedAt.Equal(notices[j].CreatedAt) {
			return notices[i].ID > notices[j].ID
		}
		return notices[i].CreatedAt.After(notices[j].CreatedAt)
	})
	return notices, nil
}

func (repo *noticeRepository) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	if err := ctx.Err(); err != nil {
		return notice.Notice{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return n, nil
	}
	return notice.Notice{}, notice.ErrNotFound
}

func (repo *noticeRepository) DeleteNotice(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return notice.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
