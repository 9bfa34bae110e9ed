package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/gamevault/pkg/cryptox"
	"google.golang.org/api/idtoken"
)

// OAuthIdentity is what a provider vouches for after the popup flow.
type OAuthIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// OAuthVerifier turns a popup credential into a verified identity.
type OAuthVerifier interface {
	Verify(ctx context.Context, credential string) (OAuthIdentity, error)
}

// GoogleVerifier checks Google ID tokens.
type GoogleVerifier struct {
	ClientID string

	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID, validate: idtoken.Validate}
}

func (g *GoogleVerifier) Verify(ctx context.Context, credential string) (OAuthIdentity, error) {
	validate := g.validate
	if validate == nil {
		validate = idtoken.Validate
	}

	payload, err := validate(ctx, credential, g.ClientID)
	if err != nil {
		return OAuthIdentity{}, fmt.Errorf("%w: google: %w", ErrInvalidCredentials, err)
	}
	if payload.Subject == "" {
		return OAuthIdentity{}, fmt.Errorf("%w: google: no subject", ErrInvalidCredentials)
	}

	str := func(k string) string {
		s, _ := payload.Claims[k].(string)
		return s
	}
	verified, _ := payload.Claims["email_verified"].(bool)

	return OAuthIdentity{
		Subject:       payload.Subject,
		Email:         str("email"),
		EmailVerified: verified,
		Name:          str("name"),
		Picture:       str("picture"),
	}, nil
}

// DefaultGraphBase is the Facebook Graph API root.
const DefaultGraphBase = "https://graph.facebook.com/v19.0"

// FacebookVerifier checks a Facebook user access token by reading /me with
// an appsecret_proof, which only the app's server can compute.
type FacebookVerifier struct {
	AppSecret  string
	GraphBase  string
	HTTPClient *http.Client
}

func NewFacebookVerifier(appSecret string) *FacebookVerifier {
	return &FacebookVerifier{
		AppSecret:  appSecret,
		GraphBase:  DefaultGraphBase,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type graphMe struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (f *FacebookVerifier) Verify(ctx context.Context, credential string) (OAuthIdentity, error) {
	if credential == "" {
		return OAuthIdentity{}, fmt.Errorf("%w: facebook: empty token", ErrInvalidCredentials)
	}

	q := url.Values{}
	q.Set("fields", "id,name,email,picture.type(large)")
	q.Set("access_token", credential)
	q.Set("appsecret_proof", cryptox.HMACSHA256Hex(f.AppSecret, credential))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.GraphBase+"/me?"+q.Encode(), nil)
	if err != nil {
		return OAuthIdentity{}, fmt.Errorf("build graph request: %w", err)
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return OAuthIdentity{}, fmt.Errorf("%w: facebook: %w", ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var me graphMe
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return OAuthIdentity{}, fmt.Errorf("%w: facebook: decode: %w", ErrProvider, err)
	}

	if me.Error != nil || resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if me.Error != nil {
			msg = me.Error.Message
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return OAuthIdentity{}, fmt.Errorf("%w: facebook: %s", ErrProvider, msg)
		}
		return OAuthIdentity{}, fmt.Errorf("%w: facebook: %s", ErrInvalidCredentials, msg)
	}
	if me.ID == "" {
		return OAuthIdentity{}, fmt.Errorf("%w: facebook: no id", ErrInvalidCredentials)
	}

	// Graph only returns addresses the user confirmed with Facebook.
	return OAuthIdentity{
		Subject:       me.ID,
		Email:         me.Email,
		EmailVerified: me.Email != "",
		Name:          me.Name,
		Picture:       me.Picture.Data.URL,
	}, nil
}
