package httpx

import (
	"net/http"
	"time"
)

// CookieConfig describes the broker session cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) base() *http.Cookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	sameSite := c.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     c.Name,
		Path:     path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	}
}

// SetCookie writes an HttpOnly cookie holding value until expires.
func (c CookieConfig) SetCookie(w http.ResponseWriter, value string, expires time.Time) {
	ck := c.base()
	ck.Value = value
	ck.Expires = expires.UTC()
	ck.MaxAge = max(int(time.Until(expires).Seconds()), 1)
	http.SetCookie(w, ck)
}

// ClearCookie expires the cookie on the client.
func (c CookieConfig) ClearCookie(w http.ResponseWriter) {
	ck := c.base()
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	http.SetCookie(w, ck)
}

// SessionMiddleware copies the session cookie value into the request
// context. Requests without the cookie pass through unchanged.
func SessionMiddleware(cfg CookieConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ck, err := r.Cookie(cfg.Name)
			if err != nil || ck.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSessionID(r.Context(), ck.Value)))
		})
	}
}
