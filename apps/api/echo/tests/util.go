package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/ktx/apps/api/echo"
	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/feedback"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/core/view"
	emailsvc "github.com/trezcool/ktx/services/email"
	"github.com/trezcool/ktx/storage/gateway"
	"github.com/trezcool/ktx/storage/kv/inmem"
	"github.com/trezcool/ktx/tests"
)

type testApp struct {
	*echoapi.Server
	gw       *gateway.Gateway
	store    *inmem.Store
	logger   *testutil.Logger
	students *student.Service
	rooms    *room.Registry
	sessions *session.Service
}

func setup(t *testing.T, opts ...func(conf *core.Config)) *testApp {
	t.Helper()
	conf := testutil.Config()
	for _, opt := range opts {
		opt(conf)
	}
	core.ParseEmailTemplates(conf, new(testutil.Logger))

	// set up store & services
	gw, store, logger := testutil.PrepareGateway(t)
	validate, translator := testutil.ValidatorWithTranslator()
	app := &testApp{gw: gw, store: store, logger: logger}
	app.students = student.NewService(gateway.NewStudentRepository(gw), validate, emailsvc.NewConsoleServiceMock(conf), conf)
	app.rooms = room.NewRegistry(gateway.NewRoomRepository(gw), app.students, conf)

	var err error
	app.sessions, err = session.NewServiceFromConfig(gateway.NewSessionRepository(gw), app.students, conf)
	require.NoError(t, err)
	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	// set up server
	app.Server = echoapi.NewServer(conf, &echoapi.Deps{
		Logger:      logger,
		Translator:  translator,
		Renderer:    renderer,
		Gateway:     gw,
		StudentSvc:  app.students,
		RoomSvc:     app.rooms,
		SessionSvc:  app.sessions,
		FeedbackSvc: feedback.NewService(gateway.NewFeedbackRepository(gw), validate),
	})
	return app
}

// client is a browser: it keeps the cookies the server sets.
type client struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, app *testApp) *client {
	return &client{t: t, app: app, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.app.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		c.cookies[cookie.Name] = cookie
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, "", nil)
}

func (c *client) postForm(path string, data url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
}

func (c *client) sendJSON(method, path string, v interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if v != nil {
		require.NoError(c.t, json.NewEncoder(&body).Encode(v))
	}
	return c.do(method, path, "application/json", &body)
}

func (c *client) loginAdmin() {
	rec := c.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	require.Equal(c.t, http.StatusSeeOther, rec.Code)
}

func (c *client) loginStudent(mssv, email string) {
	rec := c.postForm("/login", url.Values{"mssv": {mssv}, "email": {email}})
	require.Equal(c.t, http.StatusSeeOther, rec.Code)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	wantCode int
	wantData []byte
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
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
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
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
