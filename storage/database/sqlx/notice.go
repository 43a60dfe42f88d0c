package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campusboard/core/notice"
)

const noticeTable = "notice"

var noticeColumns = []string{"id", "title", "content", "category", "image_url", "created_at", "author_id"}

type noticeRow struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	Content   string      `db:"content"`
	Category  string      `db:"category"`
	ImageURL  null.String `db:"image_url"`
	CreatedAt time.Time   `db:"created_at"`
	AuthorID  string      `db:"author_id"`
}

func (r noticeRow) unwrap() notice.Notice {
	return notice.Notice{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Category:  notice.Category(r.Category),
		ImageURL:  r.ImageURL.String,
		CreatedAt: r.CreatedAt.UTC(),
		AuthorID:  r.AuthorID,
	}
}

type noticeRepository struct {
	db *sqlx.DB
}

var _ notice.Repository = (*noticeRepository)(nil) // interface compliance check

func NewNoticeRepository(db *sqlx.DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	query, args, err := psql.Insert(noticeTable).Columns(noticeColumns...).Values(
		n.ID, n.Title, n.Content, string(n.Category),
		null.NewString(n.ImageURL, n.ImageURL != ""), n.CreatedAt.UTC(), n.AuthorID,
	).ToSql()
	if err != nil {
		return notice.Notice{}, errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return notice.Notice{}, errors.Wrap(err, "inserting notice")
	}
	return n, nil
}

func (repo *noticeRepository) QueryNotices(ctx context.Context, category notice.Category) ([]notice.Notice, error) {
	qb := psql.Select(noticeColumns...).From(noticeTable).OrderBy("created_at DESC", "id DESC")
	if category != "" {
		qb = qb.Where(sq.Eq{"category": string(category)})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []noticeRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying notices")
	}
	notices := make([]notice.Notice, 0, len(rows))
	for _, r := range rows {
		notices = append(notices, r.unwrap())
	}
	return notices, nil
}

func (repo *noticeRepository) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	if !isUUID(id) {
		return notice.Notice{}, notice.ErrNotFound
	}
	query, args, err := psql.Select(noticeColumns...).From(noticeTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return notice.Notice{}, errors.Wrap(err, "building query")
	}
	var row noticeRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return notice.Notice{}, trapNoRowsErr(err, notice.ErrNotFound, "finding notice")
	}
	return row.unwrap(), nil
}

func (repo *noticeRepository) DeleteNotice(ctx context.Context, id string) error {
	if !isUUID(id) {
		return notice.ErrNotFound
	}
	query, args, err := psql.Delete(noticeTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return execOne(ctx, repo.db, notice.ErrNotFound, "deleting notice", query, args...)
}
