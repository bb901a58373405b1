package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var adaIdentity = func(role string) string {
	return `{"id": "42", "name": "Ada Obi", "email": "ada@test.ng", "role": "` + role + `",
		"profile": {"id": 42, "name": "Ada Obi", "email": "ada@test.ng"}}`
}

func TestHome(t *testing.T) {
	env := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"app": "TutorHub", "build": "", "status": "ok"}`)}, rec)
	assert.NotNil(t, sessionCookie(t, rec))
}

func TestLogin(t *testing.T) {
	env := setup(t)

	tests := []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/student/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required", "password": "this field is required"}`),
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/student/login",
			body:     []byte(`{"email": `),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/tutor/login",
			body:     []byte(`{"email": "ada@test.ng", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "invalid email or password"}`),
		},
		{
			name:     "student",
			method:   http.MethodPost,
			path:     "/student/login",
			body:     []byte(`{"email": "ADA@test.ng", "password": "` + testPassword + `"}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"identity": ` + adaIdentity("student") + `, "notice": {"level": "success", "message": "Login successful!"}}`),
		},
		{
			name:     "admin",
			method:   http.MethodPost,
			path:     "/admin/login",
			body:     []byte(`{"email": "ada@test.ng", "password": "` + testPassword + `"}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"identity": ` + adaIdentity("admin") + `, "notice": {"level": "success", "message": "Login successful!"}}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestGuard(t *testing.T) {
	env := setup(t)
	cookie := login(t, env.app, "student")

	tampered := *cookie
	tampered.Value = cookie.Value[:len(cookie.Value)-2] + "xx"

	tests := []httpTest{
		{name: "anonymous student", method: http.MethodGet, path: "/student/me", wantCode: http.StatusUnauthorized, wantData: errAuthRequired("student")},
		{name: "anonymous dashboard", method: http.MethodGet, path: "/tutor/api/classes", wantCode: http.StatusUnauthorized, wantData: errAuthRequired("tutor")},
		{name: "admin has no public recovery", method: http.MethodPost, path: "/admin/forgot-password", body: []byte(`{"email": "ada@test.ng"}`), wantCode: http.StatusUnauthorized, wantData: errAuthRequired("admin")},
		{
			name:     "public recovery",
			method:   http.MethodPost,
			path:     "/tutor/forgot-password",
			body:     []byte(`{"email": "who@test.ng"}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"notice": {"level": "success", "message": "If the email address supplied is associated with an active account on this system, an email will arrive in your inbox shortly with instructions to reset your password."}}`),
		},
		{name: "signed in", method: http.MethodGet, path: "/student/me", cookie: cookie, wantCode: http.StatusOK, wantData: []byte(`{"identity": ` + adaIdentity("student") + `}`)},
		{name: "other role", method: http.MethodGet, path: "/tutor/me", cookie: cookie, wantCode: http.StatusUnauthorized, wantData: errAuthRequired("tutor")},
		{name: "tampered cookie", method: http.MethodGet, path: "/student/me", cookie: &tampered, wantCode: http.StatusUnauthorized, wantData: errAuthRequired("student")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newSessionRequest(tt.method, tt.path, tt.cookie, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestLogout(t *testing.T) {
	env := setup(t)
	cookie := login(t, env.app, "student")
	login(t, env.app, "tutor", cookie)

	req, rec := newSessionRequest(http.MethodPost, "/student/logout", cookie)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: []byte(`{"notice": {"level": "info", "message": "You have been logged out."}, "redirect": "/student/login"}`),
	}, rec)

	req, rec = newSessionRequest(http.MethodGet, "/student/me", cookie)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the tutor stays signed in
	req, rec = newSessionRequest(http.MethodGet, "/tutor/me", cookie)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
