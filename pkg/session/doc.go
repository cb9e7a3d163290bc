// Package session holds the client side session model of the admin console:
// the persisted credential and user record ([Store]), and the policy that
// decides whether decoded claims grant access ([Validate]).
//
// A session is either [Authorized] or [Unauthorized]; the [Reason] explains
// which check failed. Reasons double as errors so they can be logged and
// matched with errors.Is.
package session
