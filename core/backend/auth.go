package backend

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/tutorhub/core/session"
)

const verifyEnrollmentPath = "/api/students/verify-course-enrollment"

var errNoIdentity = errors.New("backend response carries no identity")

// rolePath is the backend's path segment of each role.
func rolePath(role session.Role) string {
	switch role {
	case session.RoleStudent:
		return "students"
	case session.RoleTutor:
		return "tutors"
	default:
		return string(role)
	}
}

func authPath(role session.Role, action string) string {
	return "/api/auth/" + rolePath(role) + "/" + action
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for the role's identity and bearer token.
func (c *Client) Login(ctx context.Context, role session.Role, email, password string) (*session.Identity, string, error) {
	var raw map[string]interface{}
	err := c.do(ctx, call{
		method: rest.Post,
		path:   authPath(role, "login"),
		body:   Credentials{Email: email, Password: password},
	}, &raw)
	if err != nil {
		return nil, "", err
	}
	return identityFromAuth(role, raw)
}

// Register creates an account; the token is empty when the backend does not log the user in.
func (c *Client) Register(ctx context.Context, role session.Role, payload interface{}) (*session.Identity, string, error) {
	var raw map[string]interface{}
	err := c.do(ctx, call{method: rest.Post, path: authPath(role, "register"), body: payload}, &raw)
	if err != nil {
		return nil, "", err
	}
	id, token, err := identityFromAuth(role, raw)
	if err == errNoIdentity {
		return nil, "", nil
	}
	return id, token, err
}

func (c *Client) ForgotPassword(ctx context.Context, role session.Role, email string) error {
	return c.do(ctx, call{
		method: rest.Post,
		path:   authPath(role, "forgot-password"),
		body:   map[string]string{"email": email},
	}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, role session.Role, token, password string) error {
	return c.do(ctx, call{
		method:   rest.Post,
		path:     authPath(role, "reset-password/"+url.PathEscape(token)),
		body:     map[string]string{"password": password},
		endpoint: authPath(role, "reset-password"),
	}, nil)
}

// VerifyEnrollment asks the backend to record a paid enrollment.
func (c *Client) VerifyEnrollment(ctx context.Context, token string, payload interface{}) error {
	return c.do(ctx, call{method: rest.Post, path: verifyEnrollmentPath, token: token, body: payload}, nil)
}

// identityFromAuth reads `{token, <identity>}` responses. The identity is looked up under the
// role's key, then "user" and "data", then at the top level, and finally decoded from the token.
func identityFromAuth(role session.Role, raw map[string]interface{}) (*session.Identity, string, error) {
	token, _ := raw["token"].(string)
	if token == "" {
		token, _ = raw["access_token"].(string)
	}

	for _, key := range []string{string(role), "user", "data"} {
		if rec, ok := raw[key].(map[string]interface{}); ok {
			if t, ok := rec["token"].(string); ok && token == "" {
				token = t
			}
			if id, err := session.NewIdentity(role, withoutTokens(rec)); err == nil {
				return id, token, nil
			}
		}
	}
	if id, err := session.NewIdentity(role, withoutTokens(raw)); err == nil {
		return id, token, nil
	}
	if token != "" {
		id, err := session.DecodeIdentity(role, token)
		if err == nil {
			return id, token, nil
		}
	}
	return nil, "", errNoIdentity
}

func withoutTokens(rec map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		switch k {
		case "token", "access_token", "refresh_token", "password":
			continue
		}
		if _, nested := v.(map[string]interface{}); nested && k == "data" {
			continue
		}
		out[k] = v
	}
	return out
}
