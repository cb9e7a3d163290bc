// Package tokens decodes the bearer credentials the Craft-Cart backend issues
// at login.
//
// A credential is a compact JWT: three dot separated base64url segments
// (header, payload, signature). [Decode] reads only the payload and extracts
// the two claims the admin console cares about, `exp` and `role`:
//
//	claims, err := tokens.Decode(credential)
//	if errors.Is(err, tokens.ErrMalformedToken) {
//	    // not three segments, or payload is not base64url JSON
//	}
//
// # Trust
//
// Decode performs no signature verification. Anyone can hand-craft a payload
// with `"role":"admin"` and a far future `exp`, and Decode will happily return
// it. The claims are a convenience for deciding what to render; the backend
// must re-validate the credential on every API call, and it does.
//
// # Issuing
//
// [Issuer] signs HS256 credentials with the same claim shape. It exists for
// the development backend in cmd/guard-testserver and for tests.
package tokens
