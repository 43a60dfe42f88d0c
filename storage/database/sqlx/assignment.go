package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campusboard/core/assignment"
)

const assignmentTable = "assignment"

var assignmentColumns = []string{"id", "student_id", "title", "content", "submitted_at"}

type assignmentRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	SubmittedAt time.Time `db:"submitted_at"`
}

func (r assignmentRow) unwrap() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		StudentID:   r.StudentID,
		Title:       r.Title,
		Content:     r.Content,
		SubmittedAt: r.SubmittedAt.UTC(),
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	query, args, err := psql.Insert(assignmentTable).Columns(assignmentColumns...).
		Values(a.ID, a.StudentID, a.Title, a.Content, a.SubmittedAt.UTC()).
		ToSql()
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, studentID string) ([]assignment.Assignment, error) {
	qb := psql.Select(assignmentColumns...).From(assignmentTable).OrderBy("submitted_at DESC", "id DESC")
	if studentID != "" {
		if !isUUID(studentID) {
			return []assignment.Assignment{}, nil
		}
		qb = qb.Where(sq.Eq{"student_id": studentID})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.unwrap())
	}
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	if !isUUID(id) {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	query, args, err := psql.Select(assignmentColumns...).From(assignmentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "building query")
	}
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment")
	}
	return row.unwrap(), nil
}
