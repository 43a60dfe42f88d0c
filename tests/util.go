package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/campusboard/core/assignment"
	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	role policy.Role,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Millisecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Millisecond)
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateNotice(
	t *testing.T,
	repo notice.Repository,
	title string,
	category notice.Category,
	authorID string,
	createdAt ...time.Time,
) notice.Notice {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Millisecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Millisecond)
	}
	n, err := repo.CreateNotice(context.Background(), notice.Notice{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   title + " content",
		Category:  category,
		CreatedAt: tstamp,
		AuthorID:  authorID,
	})
	if err != nil {
		t.Fatalf("CreateNotice() failed: %v", err)
	}
	return n
}

func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	title, studentID string,
	submittedAt ...time.Time,
) assignment.Assignment {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Millisecond)
	if len(submittedAt) > 0 {
		tstamp = submittedAt[0].UTC().Truncate(time.Millisecond)
	}
	a, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		Title:       title,
		Content:     title + " content",
		SubmittedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}
