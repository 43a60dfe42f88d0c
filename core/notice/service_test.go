package notice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/policy"
	dummydb "github.com/trezcool/campusboard/storage/database/dummy"
	"github.com/trezcool/campusboard/tests"
)

var (
	admin   = policy.Actor{ID: "admin-1", Role: policy.RoleAdmin}
	student = policy.Actor{ID: "student-1", Role: policy.RoleStudent}
)

func setup(t *testing.T) (*notice.Service, notice.Repository) {
	t.Helper()
	repo := dummydb.NewNoticeRepository(dummydb.Open())
	return notice.NewService(repo, core.NewValidator(), core.NewTestConfig()), repo
}

func ids(notices []notice.Notice) []string {
	res := make([]string, 0, len(notices))
	for _, n := range notices {
		res = append(res, n.ID)
	}
	return res
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	t.Run("forbidden to students", func(t *testing.T) {
		_, err := svc.Create(ctx, notice.NewNotice{Title: "Exam Schedule", Content: "..."}, student)
		assert.ErrorIs(t, err, core.ErrForbidden)

		notices, err := svc.List(ctx, notice.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, notices)
	})

	t.Run("forbidden to unknown roles", func(t *testing.T) {
		_, err := svc.Create(ctx, notice.NewNotice{Title: "Exam Schedule", Content: "..."}, policy.Actor{ID: "x", Role: "teacher"})
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	invalid := []struct {
		name      string
		data      notice.NewNotice
		wantField string
	}{
		{name: "blank title", data: notice.NewNotice{Title: "  ", Content: "..."}, wantField: "title"},
		{name: "blank content", data: notice.NewNotice{Title: "Exam Schedule", Content: "\n"}, wantField: "content"},
		{name: "unknown category", data: notice.NewNotice{Title: "Exam Schedule", Content: "...", Category: "Sports"}, wantField: "category"},
		{name: "invalid image url", data: notice.NewNotice{Title: "Exam Schedule", Content: "...", ImageURL: "lol"}, wantField: "image_url"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.data, admin)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "want a validation error, got %v", err)
			require.NotEmpty(t, vErr.Fields)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}

	t.Run("created", func(t *testing.T) {
		n, err := svc.Create(ctx, notice.NewNotice{Title: " Exam Schedule ", Content: "Finals start Monday.", Category: "academic"}, admin)
		require.NoError(t, err)
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, "Exam Schedule", n.Title)
		assert.Equal(t, notice.CategoryAcademic, n.Category)
		assert.Equal(t, admin.ID, n.AuthorID)
		assert.Equal(t, time.UTC, n.CreatedAt.Location())

		notices, err := svc.List(ctx, notice.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{n.ID}, ids(notices), "the new notice is listed exactly once")
	})

	t.Run("defaults to General", func(t *testing.T) {
		n, err := svc.Create(ctx, notice.NewNotice{Title: "Library hours", Content: "..."}, admin)
		require.NoError(t, err)
		assert.Equal(t, notice.CategoryGeneral, n.Category)
	})
}

func TestService_List(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	now := time.Now()

	exam := testutil.CreateNotice(t, repo, "Exam Schedule", notice.CategoryAcademic, admin.ID, now.Add(-3*time.Hour))
	fair := testutil.CreateNotice(t, repo, "Career Fair", notice.CategoryEvents, admin.ID, now.Add(-2*time.Hour))
	grades := testutil.CreateNotice(t, repo, "Grades out", notice.CategoryAcademic, admin.ID, now.Add(-time.Hour))
	wifi := testutil.CreateNotice(t, repo, "Wifi down", notice.CategoryGeneral, admin.ID, now)

	tests := []struct {
		name    string
		filter  notice.QueryFilter
		wantIDs []string
	}{
		{name: "no filter", wantIDs: []string{wifi.ID, grades.ID, fair.ID, exam.ID}},
		{name: "All", filter: notice.QueryFilter{Category: "All"}, wantIDs: []string{wifi.ID, grades.ID, fair.ID, exam.ID}},
		{name: "Academic", filter: notice.QueryFilter{Category: "Academic"}, wantIDs: []string{grades.ID, exam.ID}},
		{name: "any case", filter: notice.QueryFilter{Category: "eVENTS"}, wantIDs: []string{fair.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notices, err := svc.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(notices))
		})
	}

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.List(ctx, notice.QueryFilter{Category: "Sports"})
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("ties broken by id", func(t *testing.T) {
		svc, repo := setup(t)
		a := testutil.CreateNotice(t, repo, "a", notice.CategoryGeneral, admin.ID, now)
		b := testutil.CreateNotice(t, repo, "b", notice.CategoryGeneral, admin.ID, now)
		want := []string{a.ID, b.ID}
		if a.ID < b.ID {
			want = []string{b.ID, a.ID}
		}
		notices, err := svc.List(ctx, notice.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, want, ids(notices))
	})
}

func TestService_Delete(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	n := testutil.CreateNotice(t, repo, "Exam Schedule", notice.CategoryAcademic, admin.ID)

	t.Run("forbidden to students", func(t *testing.T) {
		assert.ErrorIs(t, svc.Delete(ctx, n.ID, student), core.ErrForbidden)
		assert.ErrorIs(t, svc.Delete(ctx, "missing", student), core.ErrForbidden, "permission is checked first")

		got, err := svc.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		assert.ErrorIs(t, svc.Delete(ctx, "missing", admin), core.ErrNotFound)
	})

	t.Run("deleted", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, n.ID, admin))
		_, err := svc.Get(ctx, n.ID)
		assert.ErrorIs(t, err, notice.ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, n.ID, admin), core.ErrNotFound)
	})
}
