package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/account"
	"github.com/trezcool/tutorhub/core/backend"
	"github.com/trezcool/tutorhub/core/dashboard"
	"github.com/trezcool/tutorhub/core/enroll"
	"github.com/trezcool/tutorhub/core/session"
	appfs "github.com/trezcool/tutorhub/fs"
	"github.com/trezcool/tutorhub/services/checkout"
	"github.com/trezcool/tutorhub/services/email"
	"github.com/trezcool/tutorhub/storage/session/inmem"
	"github.com/trezcool/tutorhub/tests"
)

const testPassword = "Tut0r!Hub-2024"

var errAuthRequired = func(role string) []byte {
	return []byte(`{"error": "authentication required", "redirect": "/` + role + `/login"}`)
}

// fakeBackend plays the REST backend.
type fakeBackend struct {
	mu        sync.Mutex
	verified  []map[string]interface{}
	verifyErr bool
	students  []map[string]interface{}
	auths     []string
}

func (b *fakeBackend) handler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var body map[string]interface{}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}
	b.auths = append(b.auths, r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")

	write := func(code int, v interface{}) {
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/auth/") && strings.HasSuffix(r.URL.Path, "/login"):
		if body["password"] != testPassword {
			write(http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		role := strings.Split(r.URL.Path, "/")[3] // students | tutors | admin
		write(http.StatusOK, map[string]interface{}{
			"token": role + "-token",
			"user":  map[string]interface{}{"id": 42, "name": "Ada Obi", "email": body["email"]},
		})
	case strings.HasPrefix(r.URL.Path, "/api/auth/") && strings.HasSuffix(r.URL.Path, "/forgot-password"):
		write(http.StatusNotFound, map[string]string{"message": "no such user"})
	case r.URL.Path == "/api/view/courses":
		write(http.StatusOK, []map[string]interface{}{{"id": "c1", "name": "Algebra"}, {"id": "c2", "name": "Physics"}})
	case r.URL.Path == "/api/view/locations":
		write(http.StatusOK, map[string]interface{}{"data": []map[string]interface{}{{"id": 1, "name": "Lagos"}, {"id": 2, "name": "Online"}}})
	case r.URL.Path == "/api/view/all-tutor-courses":
		write(http.StatusOK, []map[string]interface{}{
			{"tutor_course_id": "t1", "tutor_name": "Tolu", "course_name": "Algebra", "price": 200000, "location": "Lagos"},
			{"tutor_course_id": "t3", "tutor_name": "Emeka", "course_name": "Physics", "price": "300000", "location": "online"},
		})
	case r.URL.Path == "/api/view/offices":
		write(http.StatusOK, []map[string]interface{}{{"id": "o1", "name": "Yaba hub", "location": "Lagos"}})
	case r.URL.Path == "/api/students/verify-course-enrollment":
		if b.verifyErr {
			write(http.StatusInternalServerError, map[string]string{"message": "db down"})
			return
		}
		b.verified = append(b.verified, body)
		write(http.StatusOK, map[string]bool{"success": true})
	case r.URL.Path == "/api/admin/students" && r.Method == http.MethodGet:
		write(http.StatusOK, b.students)
	case r.URL.Path == "/api/admin/students" && r.Method == http.MethodPost:
		body["id"] = "s3"
		b.students = append(b.students, body)
		write(http.StatusCreated, body)
	case strings.HasPrefix(r.URL.Path, "/api/admin/students/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, "/api/admin/students/")
		for i, s := range b.students {
			if s["id"] == id {
				b.students = append(b.students[:i], b.students[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		write(http.StatusNotFound, map[string]string{"message": "student not found"})
	default:
		write(http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

type testEnv struct {
	app     Server
	backend *fakeBackend
	logger  *testutil.Logger
}

func setup(t *testing.T) testEnv {
	t.Helper()
	fb := &fakeBackend{students: []map[string]interface{}{
		{"id": "s1", "name": "Ada Obi", "email": "ada@test.ng"},
		{"id": "s2", "name": "Bola Ade", "email": "bola@test.ng"},
	}}
	srv := httptest.NewServer(http.HandlerFunc(fb.handler))
	t.Cleanup(srv.Close)

	conf := testutil.NewConfig()
	conf.Backend.BaseURL = srv.URL
	logger := new(testutil.Logger)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	account.InitValidators(validate, translator)
	enroll.InitValidators(validate, translator)
	account.LoadCommonPasswords(appfs.FS, appfs.CommonPasswords, logger)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)
	emailsvc.ResetSentMessages()

	client := backend.NewClient(conf.Backend, nil)
	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Sessions:   session.NewFactory(inmemstore.New()),
		AccountSvc: account.NewService(client, validate, logger),
		EnrollSvc: enroll.NewService(conf, enroll.Deps{
			Backend:   client,
			Gateway:   checkout.NewGateway(conf),
			Validator: validate,
			MailSvc:   emailsvc.NewConsoleServiceMock(conf),
			Logger:    logger,
		}),
		DashboardSvc: dashboard.NewService(client, nil),
		Translator:   translator,
	})
	return testEnv{app: app, backend: fb, logger: logger}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte
}

func newSessionRequest(method, path string, cookie *http.Cookie, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newSessionRequest(method, path, nil, data...)
}

// sessionCookie returns the session cookie set by a response.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "tutorhub_sid" {
			return c
		}
	}
	t.Fatalf("sessionCookie(): no session cookie in response")
	return nil
}

// login signs in role and returns the session cookie.
func login(t *testing.T, app Server, role string, cookie ...*http.Cookie) *http.Cookie {
	t.Helper()
	var c *http.Cookie
	if len(cookie) > 0 {
		c = cookie[0]
	}
	req, rec := newSessionRequest(http.MethodPost, "/"+role+"/login", c,
		marshallObj(t, map[string]string{"email": "ada@test.ng", "password": testPassword}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	if c != nil {
		return c
	}
	return sessionCookie(t, rec)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), obj), rec.Body.String())
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
	if _, ok := j1.([]interface{}); !ok {
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
