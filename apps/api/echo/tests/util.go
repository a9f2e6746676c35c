package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/profpay/profpay/apps/api/echo"
	"github.com/profpay/profpay/apps/shared"
	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/user"
	emailsvc "github.com/profpay/profpay/services/email"
	metricsvc "github.com/profpay/profpay/services/metrics"
	remindersvc "github.com/profpay/profpay/services/reminder"
	"github.com/profpay/profpay/testutil"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	defaultPage     = core.Pagination{Page: 1, PerPage: core.DefaultPerPage}
)

func boolPtr(b bool) *bool { return &b }

func itoa(n int) string { return strconv.Itoa(n) }

type testApp struct {
	*Server
	conf *core.Config
	svcs *testutil.Services
}

// setup starts a server on a fresh in-memory database. confFns tweak the test configuration.
func setup(t *testing.T, confFns ...func(*core.Config)) testApp {
	t.Helper()
	return setupWithDeps(t, nil, confFns...)
}

// setupWithDeps is setup with depsFn applied to the server dependencies before the server is built.
func setupWithDeps(t *testing.T, depsFn func(*ServerDeps), confFns ...func(*core.Config)) testApp {
	t.Helper()
	conf := core.NewTestConfig()
	// most tests send several writes in a row
	conf.Server.ThrottleWindow = time.Nanosecond
	for _, fn := range confFns {
		fn(conf)
	}

	svcs := testutil.NewServices(conf)
	validate, translator := shared.NewValidator()
	metrics := metricsvc.New()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, svcs.Logger)
	reminderSvc := remindersvc.NewService(svcs.Payers, svcs.Settings, mailSvc, svcs.Logger, remindersvc.WithRecorder(metrics))

	deps := ServerDeps{
		Conf:           conf,
		Logger:         svcs.Logger,
		Validate:       validate,
		Translator:     translator,
		Metrics:        metrics,
		DisableReqLogs: true,
		UserSvc:        svcs.Users,
		FacultySvc:     svcs.Faculties,
		SettingsSvc:    svcs.Settings,
		BudgetSvc:      svcs.Budget,
		PayerSvc:       svcs.Payers,
		StatsSvc:       svcs.Stats,
		AuditSvc:       svcs.Audit,
		ReminderSvc:    reminderSvc,
	}
	if depsFn != nil {
		depsFn(&deps)
	}
	server := NewServer(deps)
	return testApp{Server: server, conf: conf, svcs: svcs}
}

// serve runs req against the app and returns the recorded response.
func (app testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

func (app testApp) createUser(t *testing.T, uname, role string, isActive bool) user.User {
	t.Helper()
	return testutil.CreateUser(t, app.svcs.UserRepo, "User "+uname, uname, uname+"@test.ru", "Pr0fPay!secret", role, isActive)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
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

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	pair, err := GenerateTokens(conf, usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return pair.AccessToken
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// runHTTPTests runs a table of requests against app.
func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, app.serve(req, rec))
		})
	}
}
