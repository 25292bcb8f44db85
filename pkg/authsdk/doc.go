/*
Package authsdk provides a client SDK for the studio authentication service,
together with the request and response types the service speaks.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (register, login, invite checks,
    bootstrap, health) and the entry point for creating Sessions
  - Session: operations that need a bearer session token

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Pre-validate an invite code
	check, err := client.CheckInvite(ctx, "WEALTH-7K2M9QX4TB", "ada@example.com")

	// Register with it
	session, _, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:      "ada@example.com",
		Password:   "correct horse battery staple",
		Name:       "Ada",
		InviteCode: "WEALTH-7K2M9QX4TB",
	})

	// Or log in
	session, user, err := client.AuthenticateWithPassword(ctx, email, password)

# Sessions

A session token is valid for a fixed period (24 hours by default) and is not
refreshable. Once it expires, or after Logout, log in again. A backend that
receives a token from a browser can check it without a Session:

	res, err := client.ValidateToken(ctx, token)
	if err == nil && res.Valid {
		fmt.Println("request from", res.User.Email)
	}

Administrators can manage invite codes and accounts:

	invite, err := session.CreateInvite(ctx, authsdk.CreateInviteRequest{Email: "new@example.com"})
	invites, err := session.ListInvites(ctx)
	err = session.SetUserActive(ctx, userID, false)

# Error Handling

Non-2xx responses are returned as *APIError carrying the status code, the
server's message and, for validation failures, per-field details:

	_, _, err := client.AuthenticateWithPassword(ctx, email, password)
	if authsdk.IsUnauthorized(err) {
		// wrong email or password, or the account is deactivated
	}

Request types have a Validate method that applies the same required-field
checks the server does, so forms can be checked before sending.

# Thread Safety

SDKClient and Session are safe for concurrent use.
*/
package authsdk
