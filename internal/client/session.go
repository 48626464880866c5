package client

import (
	"context"
	"net/http"
	"time"

	"sorso/pkg/eventbus"
)

type authResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Session returns a copy of the current session, or nil
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) HasSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// RestoreSession installs a previously saved session without announcing it
func (c *Client) RestoreSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil || s.AccessToken == "" {
		c.session = nil
		return
	}
	cp := *s
	c.session = &cp
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.emit(eventbus.SessionChanged, eventbus.SessionChange{Active: true, UserID: s.User.ID})
}

func (c *Client) clearSession() {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.mu.Unlock()
	if had {
		c.emit(eventbus.SessionChanged, eventbus.SessionChange{Active: false})
	}
}

func (c *Client) emit(topic eventbus.Topic, payload interface{}) {
	if c.bus != nil {
		c.bus.Emit(topic, payload)
	}
}

// SignIn authenticates a staff member and keeps the session
func (c *Client) SignIn(ctx context.Context, email, password string) Result[Session] {
	res := call[authResponse](ctx, c, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	})
	if !res.OK {
		return failure[Session](res.Err)
	}

	s := &Session{
		User:         res.Data.User,
		AccessToken:  res.Data.AccessToken,
		RefreshToken: res.Data.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(res.Data.ExpiresIn) * time.Second),
	}
	c.setSession(s)
	return success(*s)
}

// SignOut revokes the tokens on the backend. The local session ends even if
// the backend cannot be reached.
func (c *Client) SignOut(ctx context.Context) Result[struct{}] {
	var refresh string
	if s := c.Session(); s != nil {
		refresh = s.RefreshToken
	}
	res := call[struct{}](ctx, c, request{
		method: http.MethodPost,
		path:   "/auth/logout",
		body:   map[string]string{"refresh_token": refresh},
		auth:   true,
	})
	c.clearSession()
	return res
}

// GetSession asks the backend whether the held token is still good
func (c *Client) GetSession(ctx context.Context) Result[SessionInfo] {
	res := call[SessionInfo](ctx, c, request{
		method: http.MethodGet,
		path:   "/auth/session",
		auth:   true,
	})
	if res.OK && !res.Data.Active {
		c.clearSession()
	}
	return res
}

// RefreshSession trades the refresh token for a new pair
func (c *Client) RefreshSession(ctx context.Context) Result[Session] {
	current := c.Session()
	if current == nil {
		return failure[Session](&Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "no session"})
	}

	res := call[tokenPair](ctx, c, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refresh_token": current.RefreshToken},
	})
	if !res.OK {
		if res.Err.Unauthorized() {
			c.clearSession()
		}
		return failure[Session](res.Err)
	}

	current.AccessToken = res.Data.AccessToken
	current.RefreshToken = res.Data.RefreshToken
	current.ExpiresAt = c.now().Add(time.Duration(res.Data.ExpiresIn) * time.Second)

	c.mu.Lock()
	c.session = current
	c.mu.Unlock()
	return success(*current)
}
