package account

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/backend"
	"github.com/trezcool/tutorhub/core/session"
	appfs "github.com/trezcool/tutorhub/fs"
	"github.com/trezcool/tutorhub/storage/session/inmem"
	"github.com/trezcool/tutorhub/tests"
)

const strongPassword = "Tut0r!Hub-2024"

type fakeBackend struct {
	loginErr     error
	registerErr  error
	registerTok  string
	forgotErr    error
	resetErr     error
	registered   []interface{}
	resetTokens  []string
	forgotEmails []string
}

func (b *fakeBackend) Login(_ context.Context, role session.Role, email, _ string) (*session.Identity, string, error) {
	if b.loginErr != nil {
		return nil, "", b.loginErr
	}
	return &session.Identity{ID: "42", Name: "Ada Obi", Email: email, Role: role}, "opaque-token", nil
}

func (b *fakeBackend) Register(_ context.Context, role session.Role, payload interface{}) (*session.Identity, string, error) {
	b.registered = append(b.registered, payload)
	if b.registerErr != nil {
		return nil, "", b.registerErr
	}
	if b.registerTok == "" {
		return nil, "", nil
	}
	p := payload.(registrationPayload)
	return &session.Identity{ID: "43", Name: p.Name, Email: p.Email, Role: role}, b.registerTok, nil
}

func (b *fakeBackend) ForgotPassword(_ context.Context, _ session.Role, email string) error {
	b.forgotEmails = append(b.forgotEmails, email)
	return b.forgotErr
}

func (b *fakeBackend) ResetPassword(_ context.Context, _ session.Role, token, _ string) error {
	b.resetTokens = append(b.resetTokens, token)
	return b.resetErr
}

func newTestValidator(logger core.Logger) *validator.Validate {
	LoadCommonPasswords(appfs.FS, appfs.CommonPasswords, logger)
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	InitValidators(validate, translator)
	return validate
}

func setup(t *testing.T, b *fakeBackend) (*Service, *session.Factory, *testutil.Logger) {
	t.Helper()
	logger := new(testutil.Logger)
	return NewService(b, newTestValidator(logger), logger), session.NewFactory(inmemstore.New()), logger
}

func roleContext(t *testing.T, f *session.Factory, role session.Role, sid string) *session.Context {
	t.Helper()
	sc, err := f.Context(role, sid)
	require.NoError(t, err)
	require.NoError(t, sc.Hydrate(context.Background()))
	return sc
}

func fieldTags(err error) map[string]string {
	tags := make(map[string]string)
	if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		for _, fe := range vErrs {
			tags[fe.Field()] = fe.Tag()
		}
	}
	return tags
}

func TestService_Login(t *testing.T) {
	tests := []struct {
		name     string
		data     Login
		loginErr error
		wantErr  func(t *testing.T, err error)
	}{
		{
			name: "ok",
			data: Login{Email: "  ADA@test.ng ", Password: "secret"},
		},
		{
			name: "missing fields",
			data: Login{},
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, map[string]string{"email": "required", "password": "required"}, fieldTags(err))
			},
		},
		{
			name:     "rejected credentials",
			data:     Login{Email: "ada@test.ng", Password: "wrong"},
			loginErr: &backend.Error{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"},
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, errInvalidCredentials, err)
			},
		},
		{
			name:     "backend down",
			data:     Login{Email: "ada@test.ng", Password: "secret"},
			loginErr: &backend.Error{StatusCode: http.StatusBadGateway},
			wantErr: func(t *testing.T, err error) {
				assert.True(t, backend.IsStatus(err, http.StatusBadGateway))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, f, _ := setup(t, &fakeBackend{loginErr: tt.loginErr})
			sc := roleContext(t, f, session.RoleTutor, "sid")

			id, err := svc.Login(context.Background(), sc, tt.data)
			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
				assert.Nil(t, sc.Identity())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada@test.ng", id.Email)
			assert.Equal(t, session.RoleTutor, id.Role)

			// persisted for the next request
			again := roleContext(t, f, session.RoleTutor, "sid")
			assert.Equal(t, id, again.Identity())
			token, ok, err := again.Token(context.Background())
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "opaque-token", token)

			// other roles untouched
			assert.Nil(t, roleContext(t, f, session.RoleStudent, "sid").Identity())

			require.NoError(t, svc.Logout(context.Background(), again))
			assert.Nil(t, roleContext(t, f, session.RoleTutor, "sid").Identity())
		})
	}
}

func TestService_Register(t *testing.T) {
	valid := Registration{
		Name:            "Ada Obi",
		Email:           "Ada@Test.ng",
		Phone:           "+234 800 000 0001",
		Password:        strongPassword,
		PasswordConfirm: strongPassword,
	}
	with := func(mod func(r *Registration)) Registration {
		r := valid
		mod(&r)
		return r
	}

	tests := []struct {
		name        string
		role        session.Role
		data        Registration
		registerTok string
		registerErr error
		wantTags    map[string]string
		wantErr     error
		wantLogged  bool
	}{
		{name: "signed in", role: session.RoleStudent, data: valid, registerTok: "tok", wantLogged: true},
		{name: "needs login", role: session.RoleTutor, data: valid},
		{name: "admin closed", role: session.RoleAdmin, data: valid, wantErr: ErrRegistrationClosed},
		{
			name: "short", role: session.RoleStudent,
			data:     with(func(r *Registration) { r.Password, r.PasswordConfirm = "Ab1!", "Ab1!" }),
			wantTags: map[string]string{"password": pwdMinLenTag},
		},
		{
			name: "whitespace", role: session.RoleStudent,
			data:     with(func(r *Registration) { r.Password, r.PasswordConfirm = "Ab1! cdefg", "Ab1! cdefg" }),
			wantTags: map[string]string{"password": pwdNoSpaceTag},
		},
		{
			name: "numeric", role: session.RoleStudent,
			data:     with(func(r *Registration) { r.Password, r.PasswordConfirm = "4815162342", "4815162342" }),
			wantTags: map[string]string{"password": pwdNotAllNumTag},
		},
		{
			name: "simple", role: session.RoleStudent,
			data:     with(func(r *Registration) { r.Password, r.PasswordConfirm = "abcdefgh1", "abcdefgh1" }),
			wantTags: map[string]string{"password": pwdComplexityTag},
		},
		{
			name: "similar to name", role: session.RoleStudent,
			data:     with(func(r *Registration) { r.Password, r.PasswordConfirm = "Adaobi#1", "Adaobi#1" }),
			wantTags: map[string]string{"password": pwdAttrSimTag},
		},
		{
			name: "common", role: session.RoleStudent,
			data:     with(func(r *Registration) { r.Password, r.PasswordConfirm = "P@ssw0rd1", "P@ssw0rd1" }),
			wantTags: map[string]string{"password": pwdNoCommonTag},
		},
		{
			name: "confirmation mismatch", role: session.RoleStudent,
			data:     with(func(r *Registration) { r.PasswordConfirm = "nope" }),
			wantTags: map[string]string{"password_confirm": "eqfield"},
		},
		{
			name: "bad phone", role: session.RoleStudent,
			data:     with(func(r *Registration) { r.Phone = "call me" }),
			wantTags: map[string]string{"phone": "phone"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{registerTok: tt.registerTok, registerErr: tt.registerErr}
			svc, f, _ := setup(t, b)
			sc := roleContext(t, f, tt.role, "sid")

			id, err := svc.Register(context.Background(), sc, tt.data)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
				assert.Empty(t, b.registered)
			case tt.wantTags != nil:
				assert.Equal(t, tt.wantTags, fieldTags(err))
				assert.Empty(t, b.registered)
			default:
				require.NoError(t, err)
				require.Len(t, b.registered, 1)
				p := b.registered[0].(registrationPayload)
				assert.Equal(t, "ada@test.ng", p.Email)
				if tt.wantLogged {
					require.NotNil(t, id)
					assert.Equal(t, "43", sc.Identity().ID)
				} else {
					assert.Nil(t, id)
					assert.Nil(t, sc.Identity())
				}
			}
		})
	}
}

func TestService_Register_Conflict(t *testing.T) {
	svc, f, _ := setup(t, &fakeBackend{registerErr: &backend.Error{StatusCode: http.StatusConflict}})
	_, err := svc.Register(context.Background(), roleContext(t, f, session.RoleStudent, "sid"), Registration{
		Name: "Ada", Email: "ada@test.ng", Password: strongPassword, PasswordConfirm: strongPassword,
	})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, []core.FieldError{{Field: "email", Error: "this email is already registered"}}, vErr.Fields)
}

func TestService_ForgotPassword(t *testing.T) {
	tests := []struct {
		name       string
		forgotErr  error
		wantLogged int
	}{
		{name: "known email"},
		{name: "unknown email", forgotErr: &backend.Error{StatusCode: http.StatusNotFound}},
		{name: "backend failure", forgotErr: &backend.Error{StatusCode: http.StatusInternalServerError}, wantLogged: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{forgotErr: tt.forgotErr}
			svc, _, logger := setup(t, b)
			notice, err := svc.ForgotPassword(context.Background(), session.RoleStudent, ForgotPassword{Email: " ADA@test.ng"})
			require.NoError(t, err)
			assert.Equal(t, core.SuccessNotice(forgotPasswordText), notice)
			assert.Equal(t, []string{"ada@test.ng"}, b.forgotEmails)
			assert.Len(t, logger.Errors(), tt.wantLogged)
		})
	}

	svc, _, _ := setup(t, &fakeBackend{})
	_, err := svc.ForgotPassword(context.Background(), session.RoleStudent, ForgotPassword{Email: "nope"})
	assert.Equal(t, map[string]string{"email": "email"}, fieldTags(err))
}

func TestService_ResetPassword(t *testing.T) {
	data := ResetPassword{Password: strongPassword, PasswordConfirm: strongPassword}

	b := &fakeBackend{}
	svc, _, _ := setup(t, b)
	notice, err := svc.ResetPassword(context.Background(), session.RoleTutor, "abc", data)
	require.NoError(t, err)
	assert.Equal(t, core.NoticeSuccess, notice.Level)
	assert.Equal(t, []string{"abc"}, b.resetTokens)

	b.resetErr = &backend.Error{StatusCode: http.StatusBadRequest, Message: "token expired"}
	_, err = svc.ResetPassword(context.Background(), session.RoleTutor, "abc", data)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "token", vErr.Fields[0].Field)

	_, err = svc.ResetPassword(context.Background(), session.RoleTutor, "abc", ResetPassword{Password: "x", PasswordConfirm: "x"})
	assert.Equal(t, map[string]string{"password": pwdMinLenTag}, fieldTags(err))
}
