package brokersdk

import (
	"context"
	"net/http"
)

// Logout ends the broker session tied to this client's cookie jar. A
// client with no session still gets a successful logout.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/logout", nil)
	if err != nil {
		return err
	}
	var out messageResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// IssueSecondFactor asks the broker for a fresh secret for uid. The caller
// stores the secret; the broker keeps nothing.
func (c *Client) IssueSecondFactor(ctx context.Context, uid string) (Enrollment, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/generate-2fa", generateRequest{UID: uid})
	if err != nil {
		return Enrollment{}, err
	}

	var enr Enrollment
	if err := decodeJSON(resp, &enr, http.StatusOK); err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// VerifySecondFactor checks code against the secret stored for uid.
// A wrong code is ErrInvalidCode; no stored secret is ErrNotEnabled.
func (c *Client) VerifySecondFactor(ctx context.Context, uid, code string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/verify-2fa", verifyRequest{UID: uid, Token: code})
	if err != nil {
		return err
	}

	var out verifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return err
	}
	if !out.Success {
		return &APIError{StatusCode: http.StatusOK, Code: CodeInvalidToken, Message: "verification not confirmed"}
	}
	return nil
}

func (c *Client) GetLiveness(ctx context.Context) (HealthResponse, error) {
	return c.health(ctx, "/livez")
}

func (c *Client) GetReadiness(ctx context.Context) (HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (HealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return HealthResponse{}, err
	}
	var h HealthResponse
	if err := decodeJSON(resp, &h, http.StatusOK); err != nil {
		return HealthResponse{}, err
	}
	return h, nil
}
