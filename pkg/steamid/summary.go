package steamid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// DefaultAPIBase is the Steam Web API root.
const DefaultAPIBase = "https://api.steampowered.com"

var (
	ErrNoAPIKey       = errors.New("steamid: no web api key configured")
	ErrPlayerNotFound = errors.New("steamid: player not found")
)

// PlayerSummary is the public part of a Steam profile.
type PlayerSummary struct {
	SteamID      string `json:"steamid"`
	PersonaName  string `json:"personaname"`
	ProfileURL   string `json:"profileurl"`
	Avatar       string `json:"avatar"`
	AvatarMedium string `json:"avatarmedium"`
	AvatarFull   string `json:"avatarfull"`
	CountryCode  string `json:"loccountrycode,omitempty"`
	StateCode    string `json:"locstatecode,omitempty"`
	CityID       int    `json:"loccityid,omitempty"`
}

// HasAPIKey reports whether PlayerSummary can be called.
func (c *Client) HasAPIKey() bool { return c.cfg.APIKey != "" }

// PlayerSummary fetches the profile of steamID from ISteamUser.
func (c *Client) PlayerSummary(ctx context.Context, steamID string) (PlayerSummary, error) {
	if !c.HasAPIKey() {
		return PlayerSummary{}, ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("key", c.cfg.APIKey)
	q.Set("steamids", steamID)
	endpoint := c.cfg.APIBase + "/ISteamUser/GetPlayerSummaries/v0002/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PlayerSummary{}, fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return PlayerSummary{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return PlayerSummary{}, fmt.Errorf("%w: player summaries status %d", ErrUpstream, resp.StatusCode)
	}

	var body struct {
		Response struct {
			Players []PlayerSummary `json:"players"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return PlayerSummary{}, fmt.Errorf("decode player summaries: %w", err)
	}

	for _, p := range body.Response.Players {
		if p.SteamID == steamID {
			return p, nil
		}
	}
	return PlayerSummary{}, ErrPlayerNotFound
}
