package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusboard/apps/api/echo"
	"github.com/trezcool/campusboard/core/assignment"
	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/tests"
)

func Test_assignmentApi_submit(t *testing.T) {
	resetDB(t)
	admin := testutil.CreateUser(t, repos.Users, "admin", "admin@test.cd", pwd, policy.RoleAdmin)
	student := testutil.CreateUser(t, repos.Users, "hero", "hero@test.cd", pwd, policy.RoleStudent)
	studentToken := getToken(t, student)

	runHTTPTests(t, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/assignments",
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "admins do not submit", method: http.MethodPost, path: "/assignments", token: getToken(t, admin),
			body:     marshalObj(t, assignment.NewAssignment{Title: "Essay", Content: "..."}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "blank content", method: http.MethodPost, path: "/assignments", token: studentToken,
			body:     []byte(`{"title":"Essay","content":"  "}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, echoapi.ErrorResponse{
				Code: "validation_error", Error: "invalid input",
				Fields: map[string]string{"content": "this field cannot be blank"},
			}),
		},
		{name: "nothing stored", path: "/assignments", token: studentToken, wantData: marshalList(t)},
	})

	t.Run("submitted", func(t *testing.T) {
		body := marshalObj(t, assignment.NewAssignment{Title: "Essay", Content: "My essay."})
		req, rec := newAuthRequest(http.MethodPost, "/assignments", studentToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created assignment.Assignment
		decode(t, rec, &created)
		assert.Equal(t, student.ID, created.StudentID)
		assert.Equal(t, "Essay", created.Title)

		req, rec = newAuthRequest(http.MethodGet, "/assignments", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t, created)}, rec)
	})
}

func Test_assignmentApi_query(t *testing.T) {
	resetDB(t)
	admin := testutil.CreateUser(t, repos.Users, "admin", "admin@test.cd", pwd, policy.RoleAdmin)
	alice := testutil.CreateUser(t, repos.Users, "alice", "alice@test.cd", pwd, policy.RoleStudent)
	bob := testutil.CreateUser(t, repos.Users, "bob", "bob@test.cd", pwd, policy.RoleStudent)
	adminToken, aliceToken, bobToken := getToken(t, admin), getToken(t, alice), getToken(t, bob)

	now := time.Now()
	a1 := testutil.CreateAssignment(t, repos.Assignments, "Essay", alice.ID, now.Add(-2*time.Hour))
	b1 := testutil.CreateAssignment(t, repos.Assignments, "Lab report", bob.ID, now.Add(-time.Hour))
	a2 := testutil.CreateAssignment(t, repos.Assignments, "Project", alice.ID, now)

	runHTTPTests(t, []httpTest{
		{name: "admin sees all", path: "/assignments", token: adminToken, wantData: marshalList(t, a2, b1, a1)},
		{name: "alice sees hers", path: "/assignments", token: aliceToken, wantData: marshalList(t, a2, a1)},
		{name: "bob sees his", path: "/assignments", token: bobToken, wantData: marshalList(t, b1)},
		{name: "retrieve own", path: "/assignments/" + a1.ID, token: aliceToken, wantData: marshalObj(t, a1)},
		{name: "retrieve as admin", path: "/assignments/" + b1.ID, token: adminToken, wantData: marshalObj(t, b1)},
		{
			name: "retrieve other student's", path: "/assignments/" + a1.ID, token: bobToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound),
		},
	})
}
