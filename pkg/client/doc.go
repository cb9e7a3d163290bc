// Package client is the admin console's connection to the Craft-Cart REST API.
//
// It covers the account flows (login, signup, forgot and reset password) and
// generic list/delete access to the managed collections in [Resources]:
//
//	api := client.New("https://api.craftcart.example")
//	res, err := api.Login(ctx, email, password)
//	if err != nil {
//	    // client.IsStatus(err, http.StatusUnauthorized) for bad credentials
//	}
//	store.Save(res.Token, &res.User)
//
//	products, err := api.List(ctx, credential, "products")
//	if errors.Is(err, client.ErrUnauthorized) {
//	    // the backend rejected the credential: clear the session
//	}
//
// The backend is the authority on every credential. A 401 from any call means
// the local session is stale, whatever the locally decoded claims say.
package client
