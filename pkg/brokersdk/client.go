package brokersdk

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client talks to one broker. The underlying http.Client carries a cookie
// jar so the broker session cookie is sent back on logout.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// SteamEntryURL is where the browser is sent to start Steam sign in.
func (c *Client) SteamEntryURL() string {
	return c.url("/auth/steam")
}
