package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/profpay/profpay/apps/api/echo"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/user"
)

const testPassword = "Pr0fPay!secret"

func cookieOf(rec interface{ Result() *http.Response }, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "alice", user.RoleOperator, true)
	app.createUser(t, "naughty", user.RoleViewer, false)

	failed := marchallObj(t, httpErr{Error: "incorrect username or password"})

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{name: "unknown user", body: []byte(`{"username": "bob", "password": "lol"}`), wantCode: http.StatusUnauthorized, wantData: failed},
		{name: "wrong password", body: []byte(`{"username": "alice", "password": "lol"}`), wantCode: http.StatusUnauthorized, wantData: failed},
		{
			name: "deactivated account", body: marchallObj(t, LoginRequest{Username: "naughty", Password: testPassword}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "with username", body: marchallObj(t, LoginRequest{Username: " ALICE ", Password: testPassword}), wantCode: http.StatusOK},
		{name: "with email", body: marchallObj(t, LoginRequest{Username: usr.Email, Password: testPassword}), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/v1/auth/login", tt.body)
			app.serve(req, rec)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				assert.Nil(t, cookieOf(rec, "access_token"))
				return
			}
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var pair TokenPair
			unmarchall(t, rec, &pair)
			assert.NotEmpty(t, pair.AccessToken)
			assert.NotEmpty(t, pair.RefreshToken)
			assert.Equal(t, "bearer", pair.TokenType)

			access := cookieOf(rec, "access_token")
			require.NotNil(t, access)
			assert.Equal(t, pair.AccessToken, access.Value)
			assert.True(t, access.HttpOnly)
			require.NotNil(t, cookieOf(rec, "refresh_token"))

			refreshed, err := app.svcs.Users.GetByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.True(t, refreshed.LastLogin.Valid)
		})
	}

	page, err := app.svcs.Audit.Query(context.Background(), audit.QueryFilter{EntityType: audit.EntityUser}, defaultPage)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total, "each login is audited")
}

func Test_authApi_me(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "alice", user.RoleViewer, true)
	naughty := app.createUser(t, "naughty", user.RoleViewer, true)
	naughtyToken := getToken(t, app.conf, naughty)
	_, err := app.svcs.Users.Update(context.Background(), naughty, user.UpdateUser{IsActive: boolPtr(false)})
	require.NoError(t, err)

	pair, err := GenerateTokens(app.conf, usr)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", path: "/api/v1/auth/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "refresh token is not an access token", path: "/api/v1/auth/me", token: pair.RefreshToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired token"}),
		},
		{
			name: "deactivated since the token was issued", path: "/api/v1/auth/me", token: naughtyToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "bearer token", path: "/api/v1/auth/me", token: pair.AccessToken, wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	runHTTPTests(t, app, tests)

	t.Run("cookie token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/v1/auth/me")
		req.AddCookie(&http.Cookie{Name: "access_token", Value: pair.AccessToken})
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, usr)}, app.serve(req, rec))
	})
}

func Test_authApi_refresh(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "alice", user.RoleViewer, true)
	pair, err := GenerateTokens(app.conf, usr)
	require.NoError(t, err)

	invalid := marchallObj(t, httpErr{Error: "invalid or expired token"})
	tests := []httpTest{
		{name: "no token", method: http.MethodPost, path: "/api/v1/auth/refresh", wantCode: http.StatusUnauthorized},
		{
			name: "garbage token", method: http.MethodPost, path: "/api/v1/auth/refresh",
			body: []byte(`{"refresh_token": "lol"}`), wantCode: http.StatusUnauthorized, wantData: invalid,
		},
		{
			name: "access token", method: http.MethodPost, path: "/api/v1/auth/refresh",
			body: marchallObj(t, RefreshRequest{RefreshToken: pair.AccessToken}), wantCode: http.StatusUnauthorized, wantData: invalid,
		},
		{
			name: "body token", method: http.MethodPost, path: "/api/v1/auth/refresh",
			body: marchallObj(t, RefreshRequest{RefreshToken: pair.RefreshToken}), wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("cookie token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/v1/auth/refresh")
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: pair.RefreshToken})
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var newPair TokenPair
		unmarchall(t, rec, &newPair)
		assert.NotEqual(t, pair.AccessToken, newPair.AccessToken)
		assert.NotNil(t, cookieOf(rec, "access_token"))
	})
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodPost, "/api/v1/auth/logout")
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, MessageResponse{Message: "logged out"})}, app.serve(req, rec))

	for _, name := range []string{"access_token", "refresh_token"} {
		ck := cookieOf(rec, name)
		if assert.NotNil(t, ck, name) {
			assert.Empty(t, ck.Value)
			assert.True(t, ck.MaxAge < 0, "%s is expired", name)
		}
	}
}

func Test_authApi_users(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin", user.RoleAdmin, true)
	operator := app.createUser(t, "operator", user.RoleOperator, true)
	adminToken := getToken(t, app.conf, admin)

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	tests := []httpTest{
		{name: "Auth required", path: "/api/v1/auth/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", path: "/api/v1/auth/users", token: getToken(t, app.conf, operator), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "list", path: "/api/v1/auth/users", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, []user.User{admin, operator})},
		{name: "search", path: "/api/v1/auth/users?search=OPER", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, []user.User{operator})},
		{name: "roles", path: "/api/v1/auth/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
		{
			name: "create: all numeric password", method: http.MethodPost, path: "/api/v1/auth/users", token: adminToken,
			body:     marchallObj(t, user.NewUser{Username: "viewer", Email: "viewer@test.ru", FullName: "Viewer", Password: "1234567890"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password cannot be entirely numeric"}),
		},
		{
			name: "create: short password", method: http.MethodPost, path: "/api/v1/auth/users", token: adminToken,
			body:     marchallObj(t, user.NewUser{Username: "viewer", Email: "viewer@test.ru", FullName: "Viewer", Password: "x1"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "create: invalid role", method: http.MethodPost, path: "/api/v1/auth/users", token: adminToken,
			body:     marchallObj(t, user.NewUser{Username: "viewer", Email: "viewer@test.ru", FullName: "Viewer", Password: "Zx9#kLmq2w", Role: "root"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "create", method: http.MethodPost, path: "/api/v1/auth/users", token: adminToken,
			body:     marchallObj(t, user.NewUser{Username: "Viewer", Email: "viewer@test.ru", FullName: "Viewer", Password: "Zx9#kLmq2w"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "admin cannot deactivate themselves", method: http.MethodPut, path: "/api/v1/auth/users/" + itoa(admin.ID), token: adminToken,
			body: []byte(`{"is_active": false}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "admin cannot demote themselves", method: http.MethodPut, path: "/api/v1/auth/users/" + itoa(admin.ID), token: adminToken,
			body: []byte(`{"role": "viewer"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "update unknown user", method: http.MethodPut, path: "/api/v1/auth/users/999", token: adminToken,
			body: []byte(`{"role": "viewer"}`), wantCode: http.StatusNotFound,
		},
		{
			name: "demote operator", method: http.MethodPut, path: "/api/v1/auth/users/" + itoa(operator.ID), token: adminToken,
			body: []byte(`{"role": "viewer"}`), wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, app, tests)

	created, err := app.svcs.Users.GetByUsernameOrEmail(context.Background(), "viewer")
	require.NoError(t, err)
	assert.Equal(t, user.RoleViewer, created.Role, "role defaults to viewer")
	assert.NoError(t, created.CheckPassword("Zx9#kLmq2w"))

	demoted, err := app.svcs.Users.GetByID(context.Background(), operator.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleViewer, demoted.Role)
}
