package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/ujuzi/apps/api/echo"
	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/account"
	"github.com/trezcool/ujuzi/core/course"
	"github.com/trezcool/ujuzi/core/progress"
	"github.com/trezcool/ujuzi/services/email"
	"github.com/trezcool/ujuzi/services/logger"
	"github.com/trezcool/ujuzi/services/upload"
	"github.com/trezcool/ujuzi/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// testApp wires a full server against the in-memory store.
type testApp struct {
	app *echoapi.Server

	conf     *core.Config
	sessions *core.SessionStore
	uploadSvc interface {
		core.UploadService
		Len() int
	}

	accountRepo  account.Repository
	courseRepo   course.Repository
	progressRepo progress.Repository

	accountSvc  *account.Service
	courseSvc   *course.Service
	progressSvc *progress.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithProgressRepo(t, nil)
}

// newTestAppWithProgressRepo lets a test swap the progress repository the
// service runs on, eg. to wrap it in a failing one.
func newTestAppWithProgressRepo(t *testing.T, wrap func(progress.Repository) progress.Repository) *testApp {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	accountRepo := inmemdb.NewAccountRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	progressRepo := inmemdb.NewProgressRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	uploadSvc := uploadsvc.NewMemoryService()
	sessions := core.NewSessionStore(conf.Server.SessionTimeout)
	appLogger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	appLogger.Enable(false)

	accountSvc := account.NewService(db, accountRepo, mailSvc, conf)
	courseSvc := course.NewService(db, courseRepo)
	var svcProgressRepo progress.Repository = progressRepo
	if wrap != nil {
		svcProgressRepo = wrap(progressRepo)
	}
	progressSvc := progress.NewService(db, svcProgressRepo, courseRepo)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	app := echoapi.NewServer("", &echoapi.ServerDeps{
		Conf:        conf,
		Logger:      appLogger,
		AccountSvc:  accountSvc,
		CourseSvc:   courseSvc,
		ProgressSvc: progressSvc,
		UploadSvc:   uploadSvc,
		Sessions:    sessions,
		Validate:    validate,
		Translator:  translator,
	})

	return &testApp{
		app:          app,
		conf:         conf,
		sessions:     sessions,
		uploadSvc:    uploadSvc,
		accountRepo:  accountRepo,
		courseRepo:   courseRepo,
		progressRepo: progressRepo,
		accountSvc:   accountSvc,
		courseSvc:    courseSvc,
		progressSvc:  progressSvc,
	}
}

func (ta *testApp) getStudentToken(t *testing.T, st account.Student) string {
	t.Helper()

	claims := echoapi.GetStudentClaims(st, ta.sessions.New(st.ID, string(account.RoleStudent)))
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getStudentToken(): %v", err)
	}
	return token
}

func (ta *testApp) getAdminToken(t *testing.T, adm account.Admin) string {
	t.Helper()

	claims := echoapi.GetAdminClaims(adm, ta.sessions.New(adm.ID, string(account.RoleAdmin)))
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getAdminToken(): %v", err)
	}
	return token
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
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
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
