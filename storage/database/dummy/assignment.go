package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/campusboard/core/assignment"
)

type assignmentRepository struct {
	db *assignmentTable
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return assignment.Assignment{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[a.ID] = a
	return a, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, studentID string) ([]assignment.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]assignment.Assignment, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		if studentID == "" || a.StudentID == studentID {
			assignments = append(assignments, a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].SubmittedAt.Equal(assignments[j].SubmittedAt) {
			return assignments[i].ID > assignments[j].ID
		}
		return assignments[i].SubmittedAt.After(assignments[j].SubmittedAt)
	})
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return assignment.Assignment{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}
