package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"supatodo/internal/service"
)

// refreshSource obtains a new token with the session's refresh token and
// stores it back on the session.
type refreshSource struct {
	ctx  context.Context
	c    *Client
	sess *service.Session
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	cur := s.sess.Token()
	if cur == nil || cur.RefreshToken == "" {
		return nil, fmt.Errorf("%w: session has no refresh token", service.ErrUnauthorized)
	}

	var resp tokenResponse
	err := s.c.do(s.ctx, s.c.http, http.MethodPost, authPath+"/token",
		url.Values{"grant_type": {"refresh_token"}},
		map[string]string{"refresh_token": cur.RefreshToken},
		nil, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh returned no access token", service.ErrUnauthorized)
	}

	tok := resp.token()
	s.sess.SetToken(tok)
	s.c.events.publish(service.Event{
		Type:      service.TokenRefreshed,
		UserID:    s.sess.User.ID,
		SessionID: s.sess.ID,
	})
	return tok, nil
}

// TokenSource returns a source that serves the session's token while it is
// valid and refreshes it through the auth API afterwards.
func (c *Client) TokenSource(ctx context.Context, sess *service.Session) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(sess.Token(), &refreshSource{ctx: ctx, c: c, sess: sess})
}
