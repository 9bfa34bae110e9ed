/*
Package brokersdk is a client for the GameVault session broker.

The broker is the server half of sign in. It runs the Steam OpenID
handshake, issues and checks one-time codes for the second factor, and
tears down server side sessions on logout.

	client := brokersdk.NewClient("http://localhost:3000")

	// Where to send the browser for Steam sign in.
	entry := client.SteamEntryURL()

	// Second factor.
	enr, err := client.IssueSecondFactor(ctx, uid)
	err = client.VerifySecondFactor(ctx, uid, "123456")
	if errors.Is(err, brokersdk.ErrInvalidCode) {
		// wrong code
	}

	// Keep a local key set in sync with the broker's signing keys.
	err = client.RefreshKeySet(ctx, keys)

Non-2xx responses are returned as *APIError, which matches the package
sentinels with errors.Is.
*/
package brokersdk
