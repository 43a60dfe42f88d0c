package boltrepos

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/campusboard/core/assignment"
)

type assignmentRepository struct {
	db *bolt.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *bolt.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return assignment.Assignment{}, err
	}
	err := repo.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(assignmentBucket), a.ID, a)
	})
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, studentID string) ([]assignment.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assignments := make([]assignment.Assignment, 0)
	err := repo.db.View(func(tx *bolt.Tx) error {
		return each(tx.Bucket(assignmentBucket), func() interface{} { return new(assignment.Assignment) }, func(rec interface{}) error {
			a := *rec.(*assignment.Assignment)
			if studentID == "" || a.StudentID == studentID {
				a.SubmittedAt = a.SubmittedAt.UTC()
				assignments = append(assignments, a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(assignments, func(i, j int) bool {
		return newerFirst(assignments[i].SubmittedAt, assignments[j].SubmittedAt, assignments[i].ID, assignments[j].ID)
	})
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return assignment.Assignment{}, err
	}
	var a assignment.Assignment
	err := repo.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(assignmentBucket), id, &a)
		if err != nil {
			return err
		}
		if !found {
			return assignment.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return assignment.Assignment{}, err
	}
	a.SubmittedAt = a.SubmittedAt.UTC()
	return a, nil
}
