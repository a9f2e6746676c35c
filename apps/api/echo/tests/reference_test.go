package tests

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/profpay/profpay/apps/api/echo"
	"github.com/profpay/profpay/core/academic"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/user"
	"github.com/profpay/profpay/testutil"
)

func Test_referenceApi_academicYears(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, app.createUser(t, "viewer", user.RoleViewer, true))

	now := time.Now()
	want := AcademicYearsResponse{Current: academic.Current(now), Options: academic.Options(now)}
	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/api/v1/academic-years", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "options", path: "/api/v1/academic-years", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, want)},
	})
}

func Test_referenceApi_courseSuggestion(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, app.createUser(t, "viewer", user.RoleViewer, true))

	tests := []httpTest{
		{name: "no code", path: "/api/v1/groups/course-suggestion", token: token, wantCode: http.StatusOK, wantData: []byte(`{"course": null}`)},
		{name: "course 2", path: "/api/v1/groups/course-suggestion?code=" + url.QueryEscape("2-ИТ-1"), token: token, wantCode: http.StatusOK, wantData: []byte(`{"course": 2}`)},
		{name: "digit not leading", path: "/api/v1/groups/course-suggestion?code=" + url.QueryEscape("ИТ-21"), token: token, wantCode: http.StatusOK, wantData: []byte(`{"course": null}`)},
		{name: "leading digit only", path: "/api/v1/groups/course-suggestion?code=" + url.QueryEscape("41-М"), token: token, wantCode: http.StatusOK, wantData: []byte(`{"course": 4}`)},
		{name: "out of range", path: "/api/v1/groups/course-suggestion?code=" + url.QueryEscape("7-ИТ-1"), token: token, wantCode: http.StatusOK, wantData: []byte(`{"course": null}`)},
		{name: "no digit", path: "/api/v1/groups/course-suggestion?code=" + url.QueryEscape("ИТ"), token: token, wantCode: http.StatusOK, wantData: []byte(`{"course": null}`)},
	}
	runHTTPTests(t, app, tests)
}

func Test_referenceApi_faculties(t *testing.T) {
	app := setup(t)
	viewerToken := getToken(t, app.conf, app.createUser(t, "viewer", user.RoleViewer, true))
	operatorToken := getToken(t, app.conf, app.createUser(t, "operator", user.RoleOperator, true))

	fit := testutil.CreateFaculty(t, app.svcs.FacultyRepo, "Факультет информационных технологий", "ФИТ")
	law := testutil.CreateFaculty(t, app.svcs.FacultyRepo, "Юридический факультет", "ЮрФак")
	it11 := testutil.CreateGroup(t, app.svcs.FacultyRepo, fit.ID, "ИТ-11")
	testutil.CreateGroup(t, app.svcs.FacultyRepo, law.ID, "Ю-21")

	tests := []httpTest{
		{name: "list", path: "/api/v1/faculties", token: viewerToken, wantCode: http.StatusOK, wantData: marchallObj(t, []faculty.Faculty{fit, law})},
		{
			name: "viewer cannot create", method: http.MethodPost, path: "/api/v1/faculties", token: viewerToken,
			body: []byte(`{"name": "Химфак"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "duplicate name", method: http.MethodPost, path: "/api/v1/faculties", token: operatorToken,
			body: []byte(`{"name": "Юридический факультет"}`), wantCode: http.StatusBadRequest,
		},
		{name: "create", method: http.MethodPost, path: "/api/v1/faculties", token: operatorToken, body: []byte(`{"name": "Химический факультет"}`), wantCode: http.StatusCreated},
		{name: "groups of a faculty", path: fmt.Sprintf("/api/v1/groups?faculty_id=%d", fit.ID), token: viewerToken, wantCode: http.StatusOK, wantData: marchallObj(t, []faculty.Group{it11})},
		{
			name: "create group: unknown faculty", method: http.MethodPost, path: "/api/v1/groups", token: operatorToken,
			body: []byte(`{"name": "ИТ-12", "faculty_id": 999}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"faculty_id": "faculty not found"}),
		},
		{
			name: "delete", method: http.MethodDelete, path: "/api/v1/faculties/" + itoa(law.ID), token: operatorToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, MessageResponse{Message: "faculty deleted"}),
		},
		{name: "delete unknown", method: http.MethodDelete, path: "/api/v1/faculties/999", token: operatorToken, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, app, tests)

	t.Run("create group parses the course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/groups", operatorToken, []byte(fmt.Sprintf(`{"name": "3-ИТ-2", "faculty_id": %d}`, fit.ID)))
		app.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var g faculty.Group
		unmarchall(t, rec, &g)
		assert.Equal(t, 3, g.Course.Int)
	})

	t.Run("deleted faculties are hidden", func(t *testing.T) {
		active, err := app.svcs.Faculties.QueryFaculties(context.Background(), true)
		require.NoError(t, err)
		for _, f := range active {
			assert.NotEqual(t, law.ID, f.ID)
		}

		req, rec := newAuthRequest(http.MethodGet, "/api/v1/faculties?active_only=false", viewerToken)
		app.serve(req, rec)
		var all []faculty.Faculty
		unmarchall(t, rec, &all)
		assert.Len(t, all, 3)
	})
}

func Test_referenceApi_paymentSettings(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app.conf, app.createUser(t, "admin", user.RoleAdmin, true))
	operatorToken := getToken(t, app.conf, app.createUser(t, "operator", user.RoleOperator, true))
	year := academic.Current(time.Now())

	tests := []httpTest{
		{name: "no current settings", path: "/api/v1/payment-settings/current", token: operatorToken, wantCode: http.StatusNotFound},
		{name: "empty list", path: "/api/v1/payment-settings", token: operatorToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{
			name: "admin required", method: http.MethodPost, path: "/api/v1/payment-settings", token: operatorToken,
			body: []byte(fmt.Sprintf(`{"academic_year": %q, "fall_amount": "500", "spring_amount": "700"}`, year)), wantCode: http.StatusForbidden,
		},
		{
			name: "invalid year", method: http.MethodPost, path: "/api/v1/payment-settings", token: adminToken,
			body: []byte(`{"academic_year": "2024/2025", "fall_amount": "500", "spring_amount": "700"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "create", method: http.MethodPost, path: "/api/v1/payment-settings", token: adminToken,
			body: []byte(fmt.Sprintf(`{"academic_year": %q, "fall_amount": "500", "spring_amount": "700"}`, year)), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate year", method: http.MethodPost, path: "/api/v1/payment-settings", token: adminToken,
			body: []byte(fmt.Sprintf(`{"academic_year": %q, "fall_amount": "500", "spring_amount": "700"}`, year)), wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	req, rec := newAuthRequest(http.MethodGet, "/api/v1/payment-settings/current", operatorToken)
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var current map[string]interface{}
	unmarchall(t, rec, &current)
	assert.Equal(t, year, current["academic_year"])
	assert.Equal(t, "RUB", current["currency"])
	assert.Equal(t, "1200", current["total_year_amount"])
}

func Test_referenceApi_budget(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app.conf, app.createUser(t, "admin", user.RoleAdmin, true))
	viewerToken := getToken(t, app.conf, app.createUser(t, "viewer", user.RoleViewer, true))

	due := func(t *testing.T, query string) PaymentDueResponse {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/budget/due?"+query, viewerToken)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp PaymentDueResponse
		unmarchall(t, rec, &resp)
		return resp
	}

	cases := []struct {
		query string
		want  string // "" when unavailable
	}{
		{query: "stipend=2550&percent=1.5", want: "38.25"},
		{query: "stipend=1000&percent=1", want: "10.00"},
		{query: "stipend=333&percent=0.5", want: "1.67"}, // 166.5 rounds half up
		{query: "stipend=1000,50&percent=2", want: "20.01"},
		{query: "stipend=1000", want: ""},
		{query: "stipend=lol&percent=1", want: ""},
		{query: "stipend=0&percent=1", want: ""},
		{query: "stipend=1000&percent=-1", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			resp := due(t, tc.query)
			if tc.want == "" {
				assert.False(t, resp.PaymentDue.Valid)
				return
			}
			require.True(t, resp.PaymentDue.Valid)
			assert.Equal(t, tc.want, resp.PaymentDue.Decimal.StringFixed(2))
		})
	}

	tests := []httpTest{
		{name: "empty settings", path: "/api/v1/budget-settings", token: viewerToken, wantCode: http.StatusOK,
			wantData: []byte(`{"default_stipend": null, "default_percent": null, "payment_due": null}`)},
		{name: "admin required", method: http.MethodPut, path: "/api/v1/budget-settings", token: viewerToken,
			body: []byte(`{"default_stipend": "3000", "default_percent": "1"}`), wantCode: http.StatusForbidden},
		{name: "percent above 100", method: http.MethodPut, path: "/api/v1/budget-settings", token: adminToken,
			body: []byte(`{"default_percent": "101"}`), wantCode: http.StatusBadRequest},
		{name: "update", method: http.MethodPut, path: "/api/v1/budget-settings", token: adminToken,
			body: []byte(`{"default_stipend": "3000", "default_percent": "1"}`), wantCode: http.StatusOK},
	}
	runHTTPTests(t, app, tests)

	bs, err := app.svcs.Budget.Get(context.Background())
	require.NoError(t, err)
	require.True(t, bs.PaymentDue().Valid)
	assert.Equal(t, "30.00", bs.PaymentDue().Decimal.StringFixed(2))
}
