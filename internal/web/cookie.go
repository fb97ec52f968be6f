package web

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"supatodo/internal/service"
)

const (
	cookieName = "supatodo"

	keyAccess  = "access_token"
	keyRefresh = "refresh_token"
	keyExpiry  = "expiry"
	keyView    = "view"
)

// minSessionKey is the shortest accepted server.session_key, after hex decoding.
const minSessionKey = 32

// sessionKeys derives the cookie hash and block keys from key, which may be
// hex or raw. An empty key yields random per-process keys.
func sessionKeys(key string) (hashKey, blockKey []byte, err error) {
	if key == "" {
		return securecookie.GenerateRandomKey(64), securecookie.GenerateRandomKey(32), nil
	}
	raw := []byte(key)
	if decoded, err := hex.DecodeString(key); err == nil {
		raw = decoded
	}
	if len(raw) < minSessionKey {
		return nil, nil, fmt.Errorf("server.session_key must be at least %d bytes", minSessionKey)
	}
	sum := sha256.Sum256(raw)
	return raw, sum[:], nil
}

// newCookieStore returns a store signing and encrypting with the given keys.
func newCookieStore(hashKey, blockKey []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// browser wraps the cookie session of one request.
type browser struct {
	s *sessions.Session
}

func (b browser) token() *oauth2.Token {
	access, _ := b.s.Values[keyAccess].(string)
	if access == "" {
		return nil
	}
	refresh, _ := b.s.Values[keyRefresh].(string)
	tok := &oauth2.Token{AccessToken: access, TokenType: "bearer", RefreshToken: refresh}
	if exp, ok := b.s.Values[keyExpiry].(int64); ok && exp > 0 {
		tok.Expiry = time.Unix(exp, 0)
	}
	return tok
}

// setToken stores tok and reports whether anything changed.
func (b browser) setToken(tok *oauth2.Token) bool {
	if tok == nil {
		return false
	}
	if cur := b.token(); cur != nil && cur.AccessToken == tok.AccessToken && cur.RefreshToken == tok.RefreshToken {
		return false
	}
	b.s.Values[keyAccess] = tok.AccessToken
	b.s.Values[keyRefresh] = tok.RefreshToken
	if tok.Expiry.IsZero() {
		delete(b.s.Values, keyExpiry)
	} else {
		b.s.Values[keyExpiry] = tok.Expiry.Unix()
	}
	return true
}

func (b browser) setSession(sess *service.Session) bool {
	if sess == nil {
		return false
	}
	return b.setToken(sess.Token())
}

func (b browser) viewID() string {
	id, _ := b.s.Values[keyView].(string)
	return id
}

func (b browser) setViewID(id string) {
	if id == "" {
		delete(b.s.Values, keyView)
		return
	}
	b.s.Values[keyView] = id
}

// clear forgets the tokens and the view.
func (b browser) clear() {
	for _, k := range []string{keyAccess, keyRefresh, keyExpiry, keyView} {
		delete(b.s.Values, k)
	}
}

func (b browser) save(r *http.Request, w http.ResponseWriter) error {
	return b.s.Save(r, w)
}
