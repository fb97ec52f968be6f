package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"supatodo/internal/service"
)

// tokenResponse is the session payload returned by sign-in, sign-up and refresh.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *userResponse) user() service.User {
	if u == nil {
		return service.User{}
	}
	return service.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (r *tokenResponse) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		tok.Expiry = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok
}

// accessClaims are the fields read from an access token.
type accessClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// parseClaims reads the access token without verifying its signature; the
// token is only ever trusted by the backend that issued it.
func parseClaims(accessToken string) (*accessClaims, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	return &claims, nil
}

func (c *Client) newSession(r *tokenResponse) (*service.Session, error) {
	if r.AccessToken == "" {
		return nil, errors.New("auth response carried no access token")
	}
	tok := r.token()
	user := r.User.user()

	var sessionID string
	if claims, err := parseClaims(tok.AccessToken); err == nil {
		sessionID = claims.SessionID
		if user.ID == "" {
			user.ID = claims.Subject
			user.Email = claims.Email
		}
	}
	if user.ID == "" {
		return nil, errors.New("auth response carried no user")
	}
	return service.NewSession(sessionID, user, tok), nil
}

// SignIn implements service.IdentityProvider.
func (c *Client) SignIn(ctx context.Context, email, password string) (*service.Session, error) {
	var resp tokenResponse
	err := c.do(ctx, c.http, http.MethodPost, authPath+"/token",
		url.Values{"grant_type": {"password"}},
		map[string]string{"email": email, "password": password},
		nil, &resp)
	if err != nil {
		return nil, err
	}

	sess, err := c.newSession(&resp)
	if err != nil {
		return nil, err
	}
	c.events.publish(service.Event{Type: service.SignedIn, UserID: sess.User.ID, SessionID: sess.ID})
	return sess, nil
}

// SignUp implements service.IdentityProvider.
func (c *Client) SignUp(ctx context.Context, email, password string) (*service.Session, error) {
	// The response is a session when auto-confirm is on, otherwise a bare user.
	var resp struct {
		tokenResponse
		ID string `json:"id"`
	}
	err := c.do(ctx, c.http, http.MethodPost, authPath+"/signup", nil,
		map[string]string{"email": email, "password": password},
		nil, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, nil
	}

	sess, err := c.newSession(&resp.tokenResponse)
	if err != nil {
		return nil, err
	}
	c.events.publish(service.Event{Type: service.SignedIn, UserID: sess.User.ID, SessionID: sess.ID})
	return sess, nil
}

// SignOut implements service.IdentityProvider.
// A token the backend already considers invalid counts as signed out.
func (c *Client) SignOut(ctx context.Context, sess *service.Session) error {
	if sess == nil {
		return nil
	}
	err := c.do(ctx, c.authorized(ctx, sess), http.MethodPost, authPath+"/logout", nil, nil, nil, nil)
	if err != nil && !errors.Is(err, service.ErrUnauthorized) && !errors.Is(err, service.ErrNotFound) {
		return err
	}
	c.events.publish(service.Event{Type: service.SignedOut, UserID: sess.User.ID})
	return nil
}

// CurrentUser implements service.IdentityProvider.
func (c *Client) CurrentUser(ctx context.Context, sess *service.Session) (service.User, error) {
	if sess == nil || sess.Token() == nil {
		return service.User{}, service.ErrNoUser
	}

	var resp userResponse
	if err := c.do(ctx, c.authorized(ctx, sess), http.MethodGet, authPath+"/user", nil, nil, nil, &resp); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return service.User{}, fmt.Errorf("%w: %w", service.ErrNoUser, err)
		}
		return service.User{}, err
	}
	if resp.ID == "" {
		return service.User{}, service.ErrNoUser
	}
	return resp.user(), nil
}

// RestoreSession implements service.IdentityProvider.
func (c *Client) RestoreSession(tok *oauth2.Token) (*service.Session, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, service.ErrNoUser
	}
	claims, err := parseClaims(tok.AccessToken)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: access token has no subject", service.ErrNoUser)
	}

	restored := *tok
	if restored.Expiry.IsZero() && claims.ExpiresAt != nil {
		restored.Expiry = claims.ExpiresAt.Time
	}
	user := service.User{ID: claims.Subject, Email: claims.Email}
	return service.NewSession(claims.SessionID, user, &restored), nil
}
