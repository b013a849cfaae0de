package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/aicanvas/apps/api/echo"
	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/auth"
	"github.com/trezcool/aicanvas/core/chat"
	"github.com/trezcool/aicanvas/core/course"
	"github.com/trezcool/aicanvas/core/user"
	emailsvc "github.com/trezcool/aicanvas/services/email"
	"github.com/trezcool/aicanvas/services/pdftext"
	sqlxrepos "github.com/trezcool/aicanvas/storage/database/sqlx"
	filestore "github.com/trezcool/aicanvas/storage/files"
	testutil "github.com/trezcool/aicanvas/tests"
)

// completerMock answers every transcript with a fixed reply.
type completerMock struct {
	mu     sync.Mutex
	reply  string
	err    error
	system string
	turns  []chat.Turn
}

func (c *completerMock) Complete(_ context.Context, system string, turns []chat.Turn) (chat.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = system
	c.turns = turns
	if c.err != nil {
		return chat.Completion{}, c.err
	}
	return chat.Completion{Blocks: []chat.ContentBlock{{Type: "text", Text: c.reply}}}, nil
}

type testApp struct {
	server    *echoapi.Server
	db        *sqlx.DB
	conf      *core.Config
	mail      *emailsvc.ConsoleServiceMock
	llm       *completerMock
	usrSvc    *user.Service
	authSvc   *auth.Service
	courseSvc *course.Service
}

func setup(t *testing.T) *testApp {
	conf := &core.Config{
		Env:          "test",
		TestMode:     true,
		AppName:      "AI Canvas",
		SecretKey:    "test-secret",
		BaseURL:      "http://localhost:3000",
		MagicLinkTTL: 24 * time.Hour,
		Server:       core.ServerConfig{SessionMaxAge: 7 * 24 * time.Hour},
		Uploads:      core.UploadsConfig{Dir: t.TempDir(), MaxSize: 1 << 20},
	}

	// set up DB & repos
	db := testutil.PrepareDB(t)
	logger := testutil.Logger{}

	// set up services
	core.ParseEmailTemplates(logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	llm := &completerMock{reply: "This course covers sorting and graphs."}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	authSvc := auth.NewService(sqlxrepos.NewMagicLinkRepository(db), usrSvc, mailSvc, logger, conf)
	courseSvc := course.NewService(
		db,
		sqlxrepos.NewCourseRepository(db),
		sqlxrepos.NewEnrollmentRepository(db),
		sqlxrepos.NewMaterialRepository(db),
		usrSvc,
		filestore.NewLocalStore(conf.Uploads.Dir),
		pdftext.NewExtractor(),
		logger,
	)
	chatSvc := chat.NewService(db, sqlxrepos.NewChatRepository(db), courseSvc, llm)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		AuthSvc:    authSvc,
		CourseSvc:  courseSvc,
		ChatSvc:    chatSvc,
		Validate:   validate,
		Translator: translator,
	})

	return &testApp{
		server:    server,
		db:        db,
		conf:      conf,
		mail:      mailSvc,
		llm:       llm,
		usrSvc:    usrSvc,
		authSvc:   authSvc,
		courseSvc: courseSvc,
	}
}

func (app *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) createUser(t *testing.T, email, role string) user.User {
	usr, err := app.usrSvc.Create(context.Background(), user.NewUser{Email: email, Role: role})
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

// login runs the magic link flow for an existing user and returns the session cookie.
func (app *testApp) login(t *testing.T, email string) *http.Cookie {
	res, err := app.authSvc.RequestLogin(context.Background(), email, "")
	if err != nil {
		t.Fatalf("login(): %v", err)
	}
	return app.verify(t, res.DevLink)
}

func (app *testApp) verify(t *testing.T, devLink string) *http.Cookie {
	u, err := url.Parse(devLink)
	if err != nil {
		t.Fatalf("verify(): %v", err)
	}
	rec := app.do(newRequest(http.MethodGet, u.RequestURI()))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("verify(): code = %d; location = %q", rec.Code, rec.Header().Get("Location"))
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatalf("verify(): no session cookie")
	return nil
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	session  *http.Cookie
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path string, session *http.Cookie, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, nil, data...)
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func newMultipartRequest(t *testing.T, path string, session *http.Cookie, fields map[string]string, files ...formFile) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newMultipartRequest(): %v", err)
		}
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("newMultipartRequest(): %v", err)
		}
		_, _ = fw.Write(f.content)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newMultipartRequest(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if session != nil {
		req.AddCookie(session)
	}
	return req, httptest.NewRecorder()
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
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

func count(t *testing.T, db *sqlx.DB, query string, args ...interface{}) int {
	var n int
	if err := db.Get(&n, query, args...); err != nil {
		t.Fatalf("count(): %v", err)
	}
	return n
}
