package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/edulive/classpulse/apps/api/echo"
	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
	emailsvc "github.com/edulive/classpulse/services/email"
	inmemstore "github.com/edulive/classpulse/storage/inmem"
	testutil "github.com/edulive/classpulse/tests"
)

type testApp struct {
	server echoapi.Server
	svc    *session.Service
	conf   *core.Config
}

func initApp(t *testing.T) *testApp {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NopLogger{}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	svc := session.NewService(inmemstore.New(), logger)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		SessionSvc:     svc,
		EmailSvc:       emailsvc.NewConsoleServiceMock(conf),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &testApp{server: server, svc: svc, conf: conf}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (app *testApp) token(t *testing.T, role session.Role, studentName string) string {
	t.Helper()
	claims := echoapi.GetRoleClaims(app.conf, app.svc.Snapshot().SessionID, role, studentName)
	token, err := echoapi.GenerateToken(app.conf, claims)
	if err != nil {
		t.Fatalf("generating token failed: %v", err)
	}
	return token
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}
