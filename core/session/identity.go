package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core"
)

type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

var (
	Roles = []Role{RoleStudent, RoleTutor, RoleAdmin}

	errMalformedIdentity = errors.New("malformed identity")
)

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity is the authenticated user record of one role.
type Identity struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Role    Role            `json:"role"`
	Profile json.RawMessage `json:"profile,omitempty"` // role-specific fields, as sent by the backend
}

func (id Identity) String() string {
	return fmt.Sprintf("%s:%s <%s>", id.Role, id.ID, id.Email)
}

// NewIdentity builds an Identity out of a backend user record.
func NewIdentity(role Role, record map[string]interface{}) (*Identity, error) {
	if record == nil {
		return nil, errMalformedIdentity
	}
	id := &Identity{
		ID:    firstString(record, "id", "_id", string(role)+"_id", "user_id"),
		Name:  firstString(record, "name", "full_name", "fullname"),
		Email: core.CleanString(firstString(record, "email"), true /* lower */),
		Role:  role,
	}
	if id.Name == "" {
		id.Name = strings.TrimSpace(firstString(record, "first_name", "firstname") + " " + firstString(record, "last_name", "lastname"))
	}
	if id.ID == "" {
		return nil, errMalformedIdentity
	}
	profile, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling profile")
	}
	id.Profile = profile
	return id, nil
}

// DecodeIdentity reads the identity claims carried by a bearer token's payload.
// The signature is not verified: the backend is the one trusting its tokens.
func DecodeIdentity(role Role, token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}
	record := map[string]interface{}(claims)
	if _, ok := record["id"]; !ok {
		if sub, ok := record["sub"]; ok {
			record["id"] = sub
		}
	}
	for _, k := range []string{"exp", "iat", "nbf", "sub", "iss", "aud", "jti"} {
		delete(record, k)
	}
	return NewIdentity(role, record)
}

// tokenExpired reports whether a JWT bearer token carries an `exp` claim in the past.
// Opaque (non-JWT) tokens never expire client-side.
func tokenExpired(token string, now int64) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(now, false)
}

func parseIdentity(blob []byte) (*Identity, error) {
	var id Identity
	if err := json.Unmarshal(blob, &id); err != nil {
		return nil, errors.Wrap(errMalformedIdentity, err.Error())
	}
	if id.ID == "" {
		return nil, errMalformedIdentity
	}
	return &id, nil
}

func firstString(record map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := stringify(record[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
