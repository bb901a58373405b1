package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/enroll"
	"github.com/trezcool/tutorhub/services/email"
)

type wizardEnv struct {
	testEnv
	cookie *http.Cookie
}

func (env wizardEnv) do(t *testing.T, method, path string, body ...[]byte) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newSessionRequest(method, path, env.cookie, body...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env wizardEnv) view(t *testing.T, method, path string, wantCode int, body ...[]byte) enroll.View {
	t.Helper()
	rec := env.do(t, method, path, body...)
	require.Equal(t, wantCode, rec.Code, rec.Body.String())
	var v enroll.View
	unmarshall(t, rec, &v)
	return v
}

// walk fills the draft up to the payment step: Algebra in Lagos, onsite at o1 with tutor t1.
func (env wizardEnv) walk(t *testing.T) {
	t.Helper()
	env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"course": "c1", "location": "lagos"}`))
	env.view(t, http.MethodPost, "/student/enroll/next", http.StatusOK)
	env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"delivery_method": "onsite", "office_id": "o1"}`))
	env.view(t, http.MethodPost, "/student/enroll/next", http.StatusOK)
	env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"selected_tutor": "t1"}`))
	v := env.view(t, http.MethodPost, "/student/enroll/next", http.StatusOK)
	require.Equal(t, enroll.StepPayment, v.Step)
}

func setupWizard(t *testing.T) wizardEnv {
	env := setup(t)
	return wizardEnv{testEnv: env, cookie: login(t, env.app, "student")}
}

func TestEnroll_Guarded(t *testing.T) {
	env := setup(t)
	req, rec := newRequest(http.MethodGet, "/student/enroll")
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: errAuthRequired("student")}, rec)

	// a tutor session does not open the student wizard
	cookie := login(t, env.app, "tutor")
	req, rec = newSessionRequest(http.MethodGet, "/student/enroll", cookie)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnroll_Steps(t *testing.T) {
	env := setupWizard(t)

	v := env.view(t, http.MethodGet, "/student/enroll", http.StatusOK)
	assert.Equal(t, enroll.StepCourseLocation, v.Step)
	assert.Equal(t, "course_location", v.StepName)
	assert.Len(t, v.Reference.Courses, 2)
	assert.Len(t, v.Reference.Offerings, 2)
	assert.Nil(t, v.Notice)

	v = env.view(t, http.MethodPost, "/student/enroll/next", http.StatusUnprocessableEntity)
	assert.Equal(t, enroll.StepCourseLocation, v.Step)
	assert.Equal(t, core.WarningNotice("Please select a course and a location."), v.Notice)

	v = env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"course": "c1", "location": "Lagos"}`))
	assert.Equal(t, "Lagos", v.Draft.Location)
	require.Len(t, v.Quote.Candidates, 1)
	assert.Equal(t, "t1", v.Quote.Candidates[0].TutorCourseID)

	v = env.view(t, http.MethodPost, "/student/enroll/next", http.StatusOK)
	assert.Equal(t, enroll.StepDeliveryMethod, v.Step)

	rec := env.do(t, http.MethodPut, "/student/enroll/draft", []byte(`{"delivery_method": "teleport"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"delivery_method": "delivery method must be online or onsite"}`)}, rec)

	v = env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"delivery_method": "Online"}`))
	assert.Equal(t, "online", v.Draft.DeliveryMethod)

	env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"delivery_method": "onsite"}`))
	v = env.view(t, http.MethodPost, "/student/enroll/next", http.StatusUnprocessableEntity)
	assert.Equal(t, enroll.StepDeliveryMethod, v.Step)
	assert.Equal(t, "Please select an office for onsite delivery.", v.Notice.Message)

	rec = env.do(t, http.MethodPut, "/student/enroll/draft", []byte(`{"office_id": "nope"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"office_id": "unknown office"}`)}, rec)

	env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"office_id": "o1"}`))
	v = env.view(t, http.MethodPost, "/student/enroll/next", http.StatusOK)
	assert.Equal(t, enroll.StepTutorSelect, v.Step)

	v = env.view(t, http.MethodPost, "/student/enroll/back", http.StatusOK)
	assert.Equal(t, enroll.StepDeliveryMethod, v.Step)

	v = env.view(t, http.MethodDelete, "/student/enroll", http.StatusOK)
	assert.Equal(t, enroll.StepCourseLocation, v.Step)
	assert.Equal(t, enroll.Draft{}, v.Draft)
}

func TestEnroll_Checkout(t *testing.T) {
	env := setupWizard(t)

	rec := env.do(t, http.MethodPost, "/student/enroll/checkout")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env.view(t, http.MethodGet, "/student/enroll", http.StatusOK)
	env.walk(t)

	rec = env.do(t, http.MethodPost, "/student/enroll/checkout")
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusUnprocessableEntity,
		wantData: []byte(`{"error": "Please complete all enrollment fields.", "step": 3, "step_name": "payment",
			"notice": {"level": "warning", "message": "Please complete all enrollment fields."}}`),
	}, rec)

	v := env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"payment_plan": "installment", "terms_accepted": true}`))
	assert.Equal(t, int64(200000), v.Quote.FullAmount)
	assert.Equal(t, int64(80000), v.Quote.Amount)

	rec = env.do(t, http.MethodPost, "/student/enroll/checkout")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res enroll.CheckoutResult
	unmarshall(t, rec, &res)
	assert.Regexp(t, `^ENROLL-42-\d+$`, res.Intent.Reference)
	assert.Equal(t, int64(80000), res.Intent.Amount)
	assert.Equal(t, "paystack", res.Checkout.Gateway)
	assert.Equal(t, int64(8000000), res.Checkout.AmountMinor)
	assert.Equal(t, "NGN", res.Checkout.Currency)
	assert.Equal(t, "ada@test.ng", res.Checkout.Email)
	assert.Equal(t, "pk_test_xxx", res.Checkout.PublicKey)

	tests := []struct {
		name      string
		verifyErr bool
		callback  enroll.Callback
		wantCode  int
		wantLevel string
		wantEmail string
	}{
		{name: "unknown reference", callback: enroll.Callback{Reference: "ENROLL-42-1", Status: "success"}, wantCode: http.StatusBadRequest},
		{name: "bad status", callback: enroll.Callback{Reference: res.Intent.Reference, Status: "maybe"}, wantCode: http.StatusBadRequest},
		{name: "verified", callback: enroll.Callback{Reference: res.Intent.Reference, Status: "success", Transaction: "trx-1"}, wantCode: http.StatusOK, wantLevel: core.NoticeSuccess, wantEmail: "ada@test.ng"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()
			rec := env.do(t, http.MethodPost, "/student/enroll/callback", marshallObj(t, tt.callback))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var result enroll.Result
			unmarshall(t, rec, &result)
			assert.Equal(t, tt.wantLevel, result.Notice.Level)
			assert.Equal(t, "/student/dashboard", result.Redirect)
			assert.Equal(t, int64(2000), result.RedirectAfter)

			sent := emailsvc.Sent()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.wantEmail, sent[0].To[0].Address)
		})
	}

	require.Len(t, env.backend.verified, 1)
	payload := env.backend.verified[0]
	assert.Equal(t, res.Intent.Reference, payload["reference"])
	assert.Equal(t, "42", payload["student_id"])
	assert.Equal(t, "t1", payload["tutor_course_id"])
	assert.Equal(t, "c1", payload["course_id"])
	assert.Equal(t, "Lagos", payload["location"])
	assert.Equal(t, "onsite", payload["delivery_method"])
	assert.Equal(t, "installment", payload["payment_plan"])
	assert.Equal(t, "o1", payload["office_id"])
	assert.Contains(t, env.backend.auths, "Bearer students-token")

	// the wizard starts over after a verified enrollment
	v = env.view(t, http.MethodGet, "/student/enroll", http.StatusOK)
	assert.Equal(t, enroll.StepCourseLocation, v.Step)
}

func TestEnroll_CallbackFailures(t *testing.T) {
	env := setupWizard(t)
	env.view(t, http.MethodGet, "/student/enroll", http.StatusOK)
	env.walk(t)
	env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"payment_plan": "full", "terms_accepted": true}`))

	open := func() string {
		rec := env.do(t, http.MethodPost, "/student/enroll/checkout")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res enroll.CheckoutResult
		unmarshall(t, rec, &res)
		assert.Equal(t, int64(20000000), res.Checkout.AmountMinor)
		return res.Intent.Reference
	}

	rec := env.do(t, http.MethodPost, "/student/enroll/callback", marshallObj(t, enroll.Callback{Reference: open(), Status: "cancelled"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var result enroll.Result
	unmarshall(t, rec, &result)
	assert.Equal(t, core.InfoNotice("Payment cancelled."), result.Notice)
	assert.Empty(t, result.Redirect)

	emailsvc.ResetSentMessages()
	env.backend.verifyErr = true
	ref := open()
	rec = env.do(t, http.MethodPost, "/student/enroll/callback", marshallObj(t, enroll.Callback{Reference: ref, Status: "success"}))
	require.Equal(t, http.StatusOK, rec.Code)
	result = enroll.Result{}
	unmarshall(t, rec, &result)
	assert.Equal(t, core.NoticeError, result.Notice.Level)
	assert.Contains(t, result.Notice.Message, "contact support")
	assert.Contains(t, result.Notice.Message, ref)
	assert.Empty(t, result.Redirect)

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "support@tutorhub.test", sent[0].To[0].Address)

	// the draft survives a failed verification
	v := env.view(t, http.MethodGet, "/student/enroll", http.StatusOK)
	assert.Equal(t, "t1", v.Draft.SelectedTutor)
}

func TestEnroll_StepOrder(t *testing.T) {
	env := setupWizard(t)

	rec := env.do(t, http.MethodPut, "/student/enroll/draft", []byte(`{"course": "c1", "location": "Lagos", "delivery_method": "onsite",
		"office_id": "o1", "selected_tutor": "t1", "payment_plan": "full", "terms_accepted": true}`))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: []byte(`{"delivery_method": "please complete the previous steps first"}`),
	}, rec)

	v := env.view(t, http.MethodGet, "/student/enroll", http.StatusOK)
	assert.Equal(t, enroll.StepCourseLocation, v.Step)
	assert.Equal(t, enroll.Draft{}, v.Draft)

	env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"course": "c1", "location": "Lagos"}`))
	rec = env.do(t, http.MethodPost, "/student/enroll/checkout")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please complete the previous steps first.")
	assert.Empty(t, env.backend.verified)
}

func TestEnroll_Rewind(t *testing.T) {
	env := setupWizard(t)
	env.walk(t)

	v := env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"course": "c2"}`))
	assert.Equal(t, enroll.StepTutorSelect, v.Step)
	assert.Equal(t, "tutor_select", v.StepName)
	assert.Empty(t, v.Draft.SelectedTutor)

	v = env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"delivery_method": "onsite", "office_id": ""}`))
	assert.Equal(t, enroll.StepDeliveryMethod, v.Step)
}

func TestEnroll_DraftDroppedOnSignInOut(t *testing.T) {
	tests := []struct {
		name    string
		signOut bool
	}{
		{name: "login again"},
		{name: "logout then login", signOut: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupWizard(t)
			env.view(t, http.MethodPut, "/student/enroll/draft", http.StatusOK, []byte(`{"course": "c1", "location": "Lagos"}`))
			env.view(t, http.MethodPost, "/student/enroll/next", http.StatusOK)

			if tt.signOut {
				rec := env.do(t, http.MethodPost, "/student/logout")
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			}
			login(t, env.app, "student", env.cookie)

			v := env.view(t, http.MethodGet, "/student/enroll", http.StatusOK)
			assert.Equal(t, enroll.StepCourseLocation, v.Step)
			assert.Equal(t, enroll.Draft{}, v.Draft)
		})
	}
}
