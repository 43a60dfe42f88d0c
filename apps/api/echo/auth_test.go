package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusboard/apps/api/echo"
	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/core/user"
	"github.com/trezcool/campusboard/services/email"
	"github.com/trezcool/campusboard/tests"
)

func Test_authApi_login(t *testing.T) {
	resetDB(t)
	testutil.CreateUser(t, repos.Users, "hero", "hero@test.cd", pwd, policy.RoleStudent)

	runHTTPTests(t, []httpTest{
		{
			name: "blank fields", method: http.MethodPost, path: "/login", body: []byte(`{"username":" ","password":""}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, echoapi.ErrorResponse{
				Code:  "validation_error",
				Error: "invalid input",
				Fields: map[string]string{
					"username": "this field cannot be blank",
					"password": "this field cannot be blank",
				},
			}),
		},
		{name: "malformed body", method: http.MethodPost, path: "/login", body: []byte(`{"username":`), wantCode: http.StatusBadRequest},
		{
			name: "wrong password", method: http.MethodPost, path: "/login", body: []byte(`{"username":"hero","password":"lol"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, echoapi.ErrorResponse{Code: "invalid_credentials", Error: "invalid credentials"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/login", body: []byte(`{"username":"lol","password":"lol"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, echoapi.ErrorResponse{Code: "invalid_credentials", Error: "invalid credentials"}),
		},
	})

	t.Run("logged in", func(t *testing.T) {
		body := marshalObj(t, echoapi.LoginRequest{Username: "HERO@test.cd", Password: pwd})
		req, rec := newRequest(http.MethodPost, "/login", body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, policy.RoleStudent, resp.Role)
		assert.True(t, resp.ExpiresAt.After(time.Now()))

		req, rec = newAuthRequest(http.MethodGet, "/me", resp.Token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_authApi_me(t *testing.T) {
	resetDB(t)
	hero := testutil.CreateUser(t, repos.Users, "hero", "hero@test.cd", pwd, policy.RoleStudent)

	runHTTPTests(t, []httpTest{
		{name: "auth required", path: "/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "bad token", path: "/me", token: "lol", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errTokenInvalid)},
		{name: "me", path: "/me", token: getToken(t, hero), wantData: marshalObj(t, hero)},
	})
}

func Test_authApi_logout(t *testing.T) {
	resetDB(t)
	hero := testutil.CreateUser(t, repos.Users, "hero", "hero@test.cd", pwd, policy.RoleStudent)
	token := getToken(t, hero)

	runHTTPTests(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/logout", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "logged out", method: http.MethodPost, path: "/logout", token: token,
			wantData: marshalObj(t, echoapi.SuccessResponse{Success: "Successfully logged out."}),
		},
		{name: "token revoked", path: "/me", token: token, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errTokenInvalid)},
	})
}

func Test_authApi_refreshToken(t *testing.T) {
	resetDB(t)
	hero := testutil.CreateUser(t, repos.Users, "hero", "hero@test.cd", pwd, policy.RoleStudent)
	ctx := context.Background()

	// same session, but issued from a login older than the refresh window
	claims, err := authSvc.Verify(ctx, getToken(t, hero))
	require.NoError(t, err)
	claims.OrigIssuedAt = time.Now().Add(-30 * 24 * time.Hour).Unix()
	unrefreshableToken, err := authSvc.GenerateToken(claims)
	require.NoError(t, err)

	runHTTPTests(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/token-refresh", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "refresh period expired", method: http.MethodPost, path: "/token-refresh", token: unrefreshableToken,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, echoapi.ErrorResponse{Code: "forbidden", Error: "refresh has expired"}),
		},
	})

	t.Run("token refreshed", func(t *testing.T) {
		token := getToken(t, hero)
		req, rec := newAuthRequest(http.MethodPost, "/token-refresh", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEqual(t, token, resp.Token)

		req, rec = newAuthRequest(http.MethodGet, "/me", resp.Token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/me", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "the old token is revoked")
	})
}

func Test_authApi_passwordReset(t *testing.T) {
	resetDB(t)
	hero := testutil.CreateUser(t, repos.Users, "hero", "hero@test.cd", pwd, policy.RoleStudent)
	resetText := echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, an email will arrive in your inbox shortly with instructions to reset your password."}

	runHTTPTests(t, []httpTest{
		{
			name: "email required", method: http.MethodPost, path: "/password-reset", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, echoapi.ErrorResponse{Code: "validation_error", Error: "invalid input", Fields: map[string]string{"email": "this field is required"}}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/password-reset", body: []byte(`{"email":"lol@test.cd"}`),
			wantData: marshalObj(t, resetText),
		},
	})
	_, sent := emailsvc.LastSentMessage()
	assert.False(t, sent, "no email for unknown addresses")

	runHTTPTests(t, []httpTest{
		{
			name: "known email", method: http.MethodPost, path: "/password-reset", body: []byte(`{"email":" Hero@test.cd"}`),
			wantData: marshalObj(t, resetText),
		},
	})
	msg, sent := emailsvc.LastSentMessage()
	require.True(t, sent)
	require.Len(t, msg.To, 1)
	assert.Equal(t, hero.Email, msg.To[0].Address)
	data, ok := msg.TemplateData.(user.PasswordResetData)
	require.True(t, ok)
	assert.Equal(t, user.EncodeUID(hero), data.UID)

	newPwd := "Nw8$kRt3Yz"
	confirm := func(uid, token string) []byte {
		return marshalObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd})
	}
	runHTTPTests(t, []httpTest{
		{
			name: "invalid token", method: http.MethodPost, path: "/password-reset-confirm", body: confirm(data.UID, "lol"),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, echoapi.ErrorResponse{Code: "validation_error", Error: "invalid input", Fields: map[string]string{"token": "invalid value"}}),
		},
		{
			name: "invalid uid", method: http.MethodPost, path: "/password-reset-confirm", body: confirm("lol", data.Token),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, echoapi.ErrorResponse{Code: "validation_error", Error: "invalid input", Fields: map[string]string{"uid": "invalid value"}}),
		},
		{
			name: "password reset", method: http.MethodPost, path: "/password-reset-confirm", body: confirm(data.UID, data.Token),
			wantData: marshalObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token used", method: http.MethodPost, path: "/password-reset-confirm", body: confirm(data.UID, data.Token),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "login with new password", method: http.MethodPost, path: "/login",
			body: marshalObj(t, echoapi.LoginRequest{Username: "hero", Password: newPwd}),
		},
	})
}
