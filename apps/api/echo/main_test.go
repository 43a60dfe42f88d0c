package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/trezcool/campusboard/apps/api/echo"
	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/assignment"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/notice"
	"github.com/trezcool/campusboard/core/user"
	"github.com/trezcool/campusboard/services/email"
	"github.com/trezcool/campusboard/services/logger"
	"github.com/trezcool/campusboard/storage/database"
	"github.com/trezcool/campusboard/storage/database/dummy"
)

const pwd = "Tq7#vLm2Xp"

var (
	db      *dummydb.DB
	repos   *database.Repositories
	app     echoapi.Server
	authSvc *auth.Service
	usrSvc  *user.Service

	errMissingToken = echoapi.ErrorResponse{Code: "unauthorized", Error: "missing or malformed token"}
	errTokenInvalid = echoapi.ErrorResponse{Code: "token_invalid", Error: auth.ErrTokenInvalid.Error()}
	errForbidden    = echoapi.ErrorResponse{Code: "forbidden", Error: core.ErrForbidden.Error()}
	errNotFound     = echoapi.ErrorResponse{Code: "not_found", Error: core.ErrNotFound.Error()}
)

func TestMain(m *testing.M) {
	conf := core.NewTestConfig()

	// set up DB & repos
	db = dummydb.Open()
	repos = database.NewMemory(db)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	validate := core.NewValidator()
	authSvc = auth.NewService(repos.Sessions, repos.Users, conf)
	usrSvc = user.NewService(repos.Users, authSvc, emailsvc.NewConsoleServiceMock(conf), validate, conf)

	// set up server
	app = echoapi.NewServer(&echoapi.Options{
		TestMode:       true,
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Validator:      validate,
		AuthSvc:        authSvc,
		UserSvc:        usrSvc,
		NoticeSvc:      notice.NewService(repos.Notices, validate, conf),
		AssignmentSvc:  assignment.NewService(repos.Assignments, validate, conf),
	})

	os.Exit(m.Run())
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte // not checked when nil
}

func resetDB(t *testing.T) {
	t.Helper()
	db.Reset()
	emailsvc.ResetSentMessages()
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// getToken logs usr in. Every test user is created with pwd.
func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	_, token, err := authSvc.Login(context.Background(), usr.Username, pwd)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode(%s): %v", rec.Body.String(), err)
	}
}

func TestHome(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "API is running" {
		t.Errorf("home: code = %d; body = %q", rec.Code, rec.Body.String())
	}
}

func TestRouting(t *testing.T) {
	runHTTPTests(t, []httpTest{
		{
			name: "unknown route", path: "/lol", wantCode: http.StatusNotFound,
			wantData: marshalObj(t, echoapi.ErrorResponse{Code: "not_found", Error: "Not Found"}),
		},
		{
			name: "method not allowed", method: http.MethodPut, path: "/login", wantCode: http.StatusMethodNotAllowed,
			wantData: marshalObj(t, echoapi.ErrorResponse{Code: "method_not_allowed", Error: "Method Not Allowed"}),
		},
		{name: "auth required", path: "/notices", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "trailing slash", path: "/notices/", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "bad token", path: "/notices", token: "lol", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errTokenInvalid)},
	})
}
