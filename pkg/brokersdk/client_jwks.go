package brokersdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/gamevault/pkg/jwtx"
)

// GetJWKS fetches the keys the broker signs custom tokens with.
func (c *Client) GetJWKS(ctx context.Context) (jwtx.JWKS, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/.well-known/jwks.json", nil)
	if err != nil {
		return jwtx.JWKS{}, err
	}

	var jwks jwtx.JWKS
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return jwtx.JWKS{}, err
	}
	return jwks, nil
}

// RefreshKeySet replaces the contents of keys with the broker's JWKS.
func (c *Client) RefreshKeySet(ctx context.Context, keys *jwtx.KeySet) error {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return err
	}
	if len(jwks.Keys) == 0 {
		return fmt.Errorf("brokersdk: broker published no keys")
	}
	return keys.ResetFromJWKS(jwks)
}
