package stats

import "crypto/subtle"

// Authorizer decides whether a caller may use admin operations.
type Authorizer interface {
	IsAuthorized(key string) bool
}

// KeyAuthorizer accepts exactly one shared secret. An empty secret disables
// admin access entirely.
type KeyAuthorizer struct {
	key string
}

func NewKeyAuthorizer(key string) KeyAuthorizer {
	return KeyAuthorizer{key: key}
}

func (a KeyAuthorizer) IsAuthorized(key string) bool {
	if a.key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.key), []byte(key)) == 1
}
