package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	salt = []byte("tutorhub.core.session.cookie")

	errInvalidSessionID = errors.New("invalid session id")
)

// NewSessionID returns a random browser session id.
func NewSessionID() string {
	return uuid.NewString()
}

// SignSessionID returns the cookie value carrying sid: "<sid>.<signature>".
func SignSessionID(secret, sid string) string {
	return sid + "." + sign(secret, sid)
}

// VerifySessionID checks that a cookie value has not been tampered with and returns its session id.
func VerifySessionID(secret, value string) (string, error) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return "", errInvalidSessionID
	}
	sid, sig := value[:idx], value[idx+1:]
	if _, err := uuid.Parse(sid); err != nil {
		return "", errInvalidSessionID
	}
	if subtle.ConstantTimeCompare([]byte(sign(secret, sid)), []byte(sig)) == 0 {
		return "", errInvalidSessionID
	}
	return sid, nil
}

func sign(secret, val string) string {
	key := sha256.Sum256(append(append([]byte{}, salt...), secret...))
	h := hmac.New(sha256.New, key[:])
	_, _ = h.Write([]byte(val))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
