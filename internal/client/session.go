package client

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// session is an immutable value describing the current authentication
// state. It is replaced wholesale on login and clear, never mutated
// field-by-field; the headers carry either cookie+CSRF (unified OS) or a
// bearer token (legacy), never both.
type session struct {
	family        Family
	authenticated bool
	loginTime     time.Time
	headers       http.Header
}

func (c *ProtectClient) currentSession() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *ProtectClient) storeSession(s *session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// clearSession discards all session state, including the detected family,
// so the next login re-detects from scratch.
func (c *ProtectClient) clearSession() {
	c.storeSession(&session{})
}

// Authenticated reports whether the client currently holds session
// credentials. It does not consider staleness; Login does.
func (c *ProtectClient) Authenticated() bool {
	return c.currentSession().authenticated
}

// Family returns the detected controller family, or FamilyUnknown before
// detection has succeeded.
func (c *ProtectClient) Family() Family {
	return c.currentSession().family
}

// Login authenticates against the controller. It is a no-op while the
// session is fresh; after the refresh interval it re-authenticates even if
// every call has been succeeding, forcing periodic re-validation on quiet
// connections. At most one login is in flight at a time; concurrent callers
// block until it resolves and then short-circuit on the fresh session.
func (c *ProtectClient) Login() error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	sess := c.currentSession()
	if sess.authenticated && c.now().Sub(sess.loginTime) < c.refreshInterval {
		return nil
	}

	// Drop whatever auth headers we held; a stale CSRF token poisons the
	// retry. The detected family survives unless login fails outright.
	family := sess.family
	c.storeSession(&session{family: family})

	if family == FamilyUnknown {
		err := c.do("detect controller family", func() error {
			f := c.probeFamily()
			if f == FamilyUnknown {
				return ErrFamilyUndetected
			}
			family = f
			return nil
		})
		if err != nil {
			return err
		}
		c.storeSession(&session{family: family})
		c.log.Info("controller family detected",
			zap.String("address", c.cfg.Address),
			zap.String("family", family.String()),
		)
	}

	headers := http.Header{}
	err := c.do("login", func() error {
		resp, err := c.http.R().
			SetBody(map[string]string{
				"username": c.cfg.Username,
				"password": c.cfg.Password,
			}).
			Post(c.authURL(family))
		if err != nil {
			return err
		}
		if resp.IsError() {
			return &APIError{StatusCode: resp.StatusCode(), Op: "login", Body: resp.String()}
		}

		switch family {
		case FamilyUnifiOS:
			csrf := resp.Header().Get("X-CSRF-Token")
			cookies := resp.Cookies()
			if csrf == "" || len(cookies) == 0 {
				return &DecodeError{Op: "login", Err: errors.New("response carried no session cookie or CSRF token")}
			}
			pairs := make([]string, 0, len(cookies))
			for _, ck := range cookies {
				pairs = append(pairs, ck.Name+"="+ck.Value)
			}
			headers.Set("Cookie", strings.Join(pairs, "; "))
			headers.Set("X-CSRF-Token", csrf)
		case FamilyLegacy:
			token := resp.Header().Get("Authorization")
			if token == "" {
				return &DecodeError{Op: "login", Err: errors.New("response carried no bearer token")}
			}
			headers.Set("Authorization", "Bearer "+token)
		}
		return nil
	})
	if err != nil {
		// Full reset: the next attempt re-detects the family too. do()
		// already cleared the session for auth/decode failures; this covers
		// plain transport errors as well.
		c.clearSession()
		return err
	}

	c.storeSession(&session{
		family:        family,
		authenticated: true,
		loginTime:     c.now(),
		headers:       headers,
	})
	c.log.Info("logged in to controller",
		zap.String("address", c.cfg.Address),
		zap.String("family", family.String()),
	)
	return nil
}

// req returns a request primed with the current session's auth headers.
func (c *ProtectClient) req() *resty.Request {
	r := c.http.R()
	for name, values := range c.currentSession().headers {
		for _, v := range values {
			r.SetHeader(name, v)
		}
	}
	return r
}
