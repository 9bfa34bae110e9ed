package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	brokerhttp "github.com/aussiebroadwan/gamevault/internal/broker/http"
	"github.com/aussiebroadwan/gamevault/internal/broker/service"
	"github.com/aussiebroadwan/gamevault/internal/broker/sessions"
	"github.com/aussiebroadwan/gamevault/internal/broker/store"
	"github.com/aussiebroadwan/gamevault/internal/broker/store/drivers/sqlite"
	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/aussiebroadwan/gamevault/pkg/httpx"
	"github.com/aussiebroadwan/gamevault/pkg/jwtx"
	"github.com/aussiebroadwan/gamevault/pkg/slogx"
	"github.com/aussiebroadwan/gamevault/pkg/steamid"
	"github.com/aussiebroadwan/gamevault/pkg/totpx"
	"github.com/stretchr/testify/require"
)

const (
	testSteamID     = "76561197960287930"
	testIssuer      = "gamevault-broker"
	testAudience    = "gamevault-identity"
	testCookieName  = "gamevault_session"
	testAppOrigin   = "http://localhost:5173"
	testAppCallback = testAppOrigin + "/auth/steam/callback"
)

// steamProvider fakes the Steam OpenID endpoint and the Web API.
type steamProvider struct {
	srv *httptest.Server
}

func newSteamProvider(t *testing.T) *steamProvider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /openid/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ns:http://specs.openid.net/auth/2.0\nis_valid:true\n"))
	})
	mux.HandleFunc("GET /ISteamUser/GetPlayerSummaries/v0002/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"players":[{"steamid":"76561197960287930","personaname":"Gabe","profileurl":"https://steamcommunity.com/id/gabe/","avatarfull":"https://avatars.example/full.jpg","loccountrycode":"UA"}]}}`))
	})

	p := &steamProvider{srv: httptest.NewServer(mux)}
	t.Cleanup(p.srv.Close)
	return p
}

func (p *steamProvider) endpoint() string { return p.srv.URL + "/openid/login" }

// flakySessions wraps a memory store and fails the chosen calls.
type flakySessions struct {
	*sessions.MemoryStore
	saveErr    error
	destroyErr error
	pingErr    error
}

func (f *flakySessions) Save(ctx context.Context, s sessions.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.Save(ctx, s)
}

func (f *flakySessions) Destroy(ctx context.Context, id string) error {
	if f.destroyErr != nil {
		return f.destroyErr
	}
	return f.MemoryStore.Destroy(ctx, id)
}

func (f *flakySessions) Ping(ctx context.Context) error {
	if f.pingErr != nil {
		return f.pingErr
	}
	return f.MemoryStore.Ping(ctx)
}

type fixture struct {
	srv      *httptest.Server
	store    *sqlite.Store
	sessions *flakySessions
	keys     *jwtx.KeyManager
	totp     *totpx.Service
	steam    *steamProvider
	sdk      *brokersdk.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	keys, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Issuer:   testIssuer,
		Audience: []string{testAudience},
		NumKeys:  2,
	})
	require.NoError(t, err)

	f := &fixture{
		store:    db,
		sessions: &flakySessions{MemoryStore: sessions.NewMemoryStore(time.Hour)},
		keys:     keys,
		totp:     totpx.New(totpx.DefaultConfig()),
		steam:    newSteamProvider(t),
	}

	// The OpenID return URL names the broker, which only has an address
	// once the server is listening.
	var router http.Handler
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)

	steam, err := steamid.New(steamid.Config{
		Realm:    f.srv.URL + "/",
		ReturnTo: f.srv.URL + "/auth/steam/return",
		Endpoint: f.steam.endpoint(),
		APIKey:   "test-key",
		APIBase:  f.steam.srv.URL,
	}, sessions.NewMemoryNonces())
	require.NoError(t, err)

	logger := slogx.Discard()
	sessionService := &service.SessionService{Sessions: f.sessions, Logger: logger}

	r := brokerhttp.NewRouter(keys, db, f.sessions, brokerhttp.NewRegistry(), brokerhttp.RouterConfig{
		Cookie:         httpx.CookieConfig{Name: testCookieName},
		CORS:           httpx.CORSConfig{AllowedOrigins: []string{testAppOrigin}},
		AppCallbackURL: testAppCallback,
		BuildVersion:   "test",
	}, logger)
	r.SessionService = sessionService
	r.TwoFactorService = &service.TwoFactorService{Settings: store.NewDocumentStoreAdapter(db), TOTP: f.totp, Logger: logger}
	r.SteamService = &service.SteamService{
		Steam:    steam,
		Store:    db,
		Sessions: sessionService,
		Signer:   keys,
		Issuer:   testIssuer,
		Audience: []string{testAudience},
		TokenTTL: 5 * time.Minute,
		Logger:   logger,
	}
	r.ApplyRoutes()
	router = r

	f.sdk = brokersdk.NewClient(f.srv.URL)
	return f
}

// browser shares the SDK cookie jar but stops at redirects, so tests can
// follow the handshake one hop at a time.
func (f *fixture) browser() *http.Client {
	return &http.Client{
		Jar: f.sdk.HTTPClient.Jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// assertion is a positive OpenID response for testSteamID.
func (f *fixture) assertion(nonceSuffix string) url.Values {
	claimed := "https://steamcommunity.com/openid/id/" + testSteamID
	q := url.Values{}
	q.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	q.Set("openid.mode", "id_res")
	q.Set("openid.op_endpoint", f.steam.endpoint())
	q.Set("openid.claimed_id", claimed)
	q.Set("openid.identity", claimed)
	q.Set("openid.return_to", f.srv.URL+"/auth/steam/return")
	q.Set("openid.response_nonce", time.Now().UTC().Add(-5*time.Second).Format(time.RFC3339)+nonceSuffix)
	q.Set("openid.assoc_handle", "1234567890")
	q.Set("openid.signed", "signed,op_endpoint,claimed_id,identity,return_to,response_nonce,assoc_handle")
	q.Set("openid.sig", "c2lnbmF0dXJl")
	return q
}

// redirect issues a GET and returns the Location of the 302 answer.
func redirect(t *testing.T, client *http.Client, target string) *url.URL {
	t.Helper()

	resp, err := client.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := resp.Location()
	require.NoError(t, err)
	return loc
}

func postJSON(t *testing.T, target string, body any) (int, httpx.ErrorResponse, []byte) {
	t.Helper()

	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = strings.NewReader(string(raw))
	}

	resp, err := http.Post(target, "application/json", payload)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var errBody httpx.ErrorResponse
	_ = json.Unmarshal(raw, &errBody)
	return resp.StatusCode, errBody, raw
}
