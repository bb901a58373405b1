package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RoleConfig parameterizes the session Context of one role.
type RoleConfig struct {
	Role        Role
	IdentityKey string
	TokenKey    string
	LoginPath   string
	// PublicPaths never redirect to the login page; entries ending with "/" match as prefixes.
	PublicPaths []string
}

// IsPublic reports whether path is reachable without being signed in.
func (rc RoleConfig) IsPublic(path string) bool {
	if path == rc.LoginPath {
		return true
	}
	for _, p := range rc.PublicPaths {
		if p == path || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// DefaultRoles are the stock student, tutor & admin configurations.
// The admin role has no public path other than its login page.
var DefaultRoles = []RoleConfig{
	{
		Role:        RoleStudent,
		IdentityKey: "student",
		TokenKey:    "token",
		LoginPath:   "/student/login",
		PublicPaths: publicAuthPaths("/student"),
	},
	{
		Role:        RoleTutor,
		IdentityKey: "tutor",
		TokenKey:    "tutorToken",
		LoginPath:   "/tutor/login",
		PublicPaths: publicAuthPaths("/tutor"),
	},
	{
		Role:        RoleAdmin,
		IdentityKey: "admin",
		TokenKey:    "adminToken",
		LoginPath:   "/admin/login",
	},
}

func publicAuthPaths(prefix string) []string {
	return []string{
		prefix + "/login",
		prefix + "/register",
		prefix + "/forgot-password",
		prefix + "/reset-password/",
	}
}

// Factory hands out the session Context of any configured role.
type Factory struct {
	store Store
	roles map[Role]RoleConfig
	now   func() time.Time
}

// NewFactory returns a Factory over store, using DefaultRoles when no role is given.
func NewFactory(store Store, roles ...RoleConfig) *Factory {
	if len(roles) == 0 {
		roles = DefaultRoles
	}
	f := &Factory{
		store: store,
		roles: make(map[Role]RoleConfig, len(roles)),
		now:   time.Now,
	}
	for _, rc := range roles {
		f.roles[rc.Role] = rc
	}
	return f
}

func (f *Factory) Store() Store { return f.store }

func (f *Factory) RoleConfig(role Role) (RoleConfig, bool) {
	rc, ok := f.roles[role]
	return rc, ok
}

// Context returns a fresh, not yet hydrated Context for the role within session sid.
func (f *Factory) Context(role Role, sid string) (*Context, error) {
	rc, ok := f.roles[role]
	if !ok {
		return nil, errors.Errorf("unknown role %q", role)
	}
	return &Context{conf: rc, store: f.store, sid: sid, now: f.now}, nil
}

// Context holds the current identity of one role within one browser session.
// Contexts of different roles never touch each other's keys.
type Context struct {
	conf     RoleConfig
	store    Store
	sid      string
	now      func() time.Time
	identity *Identity
	hydrated bool
}

func (c *Context) Role() Role          { return c.conf.Role }
func (c *Context) SessionID() string   { return c.sid }
func (c *Context) LoginPath() string   { return c.conf.LoginPath }
func (c *Context) Hydrated() bool      { return c.hydrated }
func (c *Context) Config() RoleConfig  { return c.conf }
func (c *Context) Identity() *Identity { return c.identity }
func (c *Context) Authenticated() bool { return c.identity != nil }

// Hydrate loads the persisted identity. A malformed entry is removed and the context stays
// unauthenticated. Reading never mutates a well-formed entry.
func (c *Context) Hydrate(ctx context.Context) error {
	blob, err := c.store.Get(ctx, c.sid, c.conf.IdentityKey)
	switch {
	case errors.Cause(err) == ErrNotFound:
		c.identity = nil
	case err != nil:
		return errors.Wrap(err, "reading identity")
	default:
		id, pErr := parseIdentity(blob)
		if pErr != nil {
			if err := c.store.Delete(ctx, c.sid, c.conf.IdentityKey); err != nil {
				return errors.Wrap(err, "removing malformed identity")
			}
			c.identity = nil
			break
		}
		id.Role = c.conf.Role
		c.identity = id
	}
	c.hydrated = true
	return nil
}

// SetIdentity stores id in memory and in the session store; nil clears both.
func (c *Context) SetIdentity(ctx context.Context, id *Identity) error {
	if id == nil {
		if err := c.store.Delete(ctx, c.sid, c.conf.IdentityKey); err != nil {
			return errors.Wrap(err, "deleting identity")
		}
		c.identity = nil
		return nil
	}

	usr := *id
	usr.Role = c.conf.Role
	blob, err := json.Marshal(usr)
	if err != nil {
		return errors.Wrap(err, "marshalling identity")
	}
	if err := c.store.Set(ctx, c.sid, c.conf.IdentityKey, blob); err != nil {
		return errors.Wrap(err, "storing identity")
	}
	c.identity = &usr
	c.hydrated = true
	return nil
}

// Token returns the role's bearer token; expired JWTs are reported as missing.
func (c *Context) Token(ctx context.Context) (string, bool, error) {
	blob, err := c.store.Get(ctx, c.sid, c.conf.TokenKey)
	if errors.Cause(err) == ErrNotFound {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrap(err, "reading token")
	}
	token := strings.TrimSpace(string(blob))
	if token == "" || tokenExpired(token, c.now().Unix()) {
		return "", false, nil
	}
	return token, true, nil
}

func (c *Context) HasToken(ctx context.Context) (bool, error) {
	_, ok, err := c.Token(ctx)
	return ok, err
}

// Login persists both the identity and its bearer token.
func (c *Context) Login(ctx context.Context, id *Identity, token string) error {
	if id == nil || token == "" {
		return errors.New("identity and token are required")
	}
	if err := c.store.Set(ctx, c.sid, c.conf.TokenKey, []byte(token)); err != nil {
		return errors.Wrap(err, "storing token")
	}
	return c.SetIdentity(ctx, id)
}

// Logout clears the identity and the token of this role only.
func (c *Context) Logout(ctx context.Context) error {
	if err := c.SetIdentity(ctx, nil); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, c.sid, c.conf.TokenKey); err != nil {
		return errors.Wrap(err, "deleting token")
	}
	return nil
}

// RedirectTarget tells whether a visitor of path must be sent to the role's login page.
func (c *Context) RedirectTarget(path string) (string, bool) {
	if c.identity != nil || c.conf.IsPublic(path) {
		return "", false
	}
	return c.conf.LoginPath, true
}
