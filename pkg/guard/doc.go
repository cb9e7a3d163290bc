// Package guard decides, per navigation, whether the protected part of the
// admin console may render.
//
// Each evaluation starts in Checking and resolves to Authorized or
// Unauthorized:
//
//   - no stored credential: Unauthorized, nothing is decoded
//   - credential does not decode: clear the store, Unauthorized
//   - claims fail validation (expired, wrong role): clear the store, Unauthorized
//   - otherwise Authorized
//
// Evaluation happens on navigation, never on a timer, so a credential that
// expires mid-session is caught on the next route change. That latency is
// acceptable because the backend re-checks the credential on every call; the
// guard only keeps stale sessions from rendering admin views.
//
// [Guard.Middleware] adapts the guard to net/http, where every request to a
// guarded route is a navigation. [Navigator] adapts it to screen based UIs
// that track a current path and a history.
package guard
