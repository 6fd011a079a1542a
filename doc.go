// Package access implements the authentication and time-bound access-control
// core of the justiceia legal platform: signed session tokens, cookie-based
// session propagation, route-level gating, identity-verification (VKYC)
// state, and the paid access-grant ledger.
//
// Sessions:
//   - Sessions are self-contained HS256 JWTs carried in an HTTP-only,
//     SameSite=Strict cookie. The server keeps no session table; possession of
//     an unexpired, well-signed token is the session. Logout clears the cookie
//     only; a token stays valid until its expiry (see the staleness note on
//     Auther).
//
// Access grants:
//   - A completed payment for a consultation produces at most one active
//     AccessGrant per consultation. The invariant is enforced by a partial
//     unique index at the storage layer rather than an in-process lock, so multiple
//     server processes can confirm payments concurrently.
//
// Route gating:
//   - RouteTable is a data-driven policy table mapping path prefixes to access
//     classes (public, authenticated, authenticated+verified). The gate fails
//     closed: any token validation error redirects to sign-in and clears the
//     stale cookie. The verified flag is read from the stored profile, not the
//     token, so completing verification takes effect on the next request
//     without reissuing the session token.
package access
