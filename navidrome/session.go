package navidrome

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"net/url"
)

const (
	// APIVersion is the Subsonic API version requests are made against
	APIVersion = "1.16.1"
	// ClientName identifies this application to the server
	ClientName = "playlistarr"
)

// Session holds the credentials of a Subsonic user. The protocol wants a new salt on every
// request, so Params derives fresh authentication parameters on each call.
type Session struct {
	Username string
	Password string
}

// NewSession creates a session for a user
func NewSession(username, password string) Session {
	return Session{Username: username, Password: password}
}

// Params returns the common query parameters of a request: user, salted token, salt, API
// version, client name and response format
func (s Session) Params() url.Values {
	salt := rand.Text()

	return url.Values{
		"u": {s.Username},
		"t": {Token(s.Password, salt)},
		"s": {salt},
		"v": {APIVersion},
		"c": {ClientName},
		"f": {"json"},
	}
}

// Token computes the Subsonic authentication token md5(password + salt)
func Token(password, salt string) string {
	sum := md5.Sum([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}
