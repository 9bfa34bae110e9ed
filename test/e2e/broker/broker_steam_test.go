package broker_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"

	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/stretchr/testify/require"
)

// TestSteamHandshake checks both redirect legs without a real Steam
// account: the entry point sends the browser to Steam with a session
// cookie, and an invalid assertion comes back as an error code.
func TestSteamHandshake(t *testing.T) {
	baseURL, cleanup := setupBrokerContainer(t, nil)
	defer cleanup()

	client := brokersdk.NewClient(baseURL)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := noRedirectClient(jar)

	resp, err := browser.Get(client.SteamEntryURL())
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := resp.Location()
	require.NoError(t, err)
	require.Equal(t, "steamcommunity.com", loc.Host)
	require.Equal(t, "http://localhost:3000/auth/steam/return", loc.Query().Get("openid.return_to"))

	base, err := url.Parse(baseURL)
	require.NoError(t, err)
	require.Len(t, jar.Cookies(base), 1, "session cookie should be set")

	resp, err = browser.Get(baseURL + "/auth/steam/return?openid.mode=cancel")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err = resp.Location()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(loc.String(), appOrigin+"/auth/steam/callback?"), loc.String())
	require.Equal(t, "steam_auth_failed", loc.Query().Get("error"))
	require.Empty(t, jar.Cookies(base), "session cookie should be cleared")

	require.NoError(t, client.Logout(t.Context()))
}
