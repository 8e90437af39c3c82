// Package accounts provides username/password account management (Bun-backed
// repositories, JWT cookie sessions, opaque API tokens) plus the HTML and
// JSON controllers that expose the full lifecycle.
//
// Account lifecycle:
//   - Registration creates a User plus a Profile and emails a single-use
//     verification token. Accounts stay inactive until the token is claimed,
//     unless the module is configured to skip verification.
//   - Verification tokens live in their own table and are consumed with an
//     atomic conditional update, so a link can be revisited safely and
//     concurrent claims cannot both spend the same token.
//   - Password reset follows the same token mechanism with its own kind.
//     Requests never reveal whether an address has an account.
//
// Sessions and roles:
//   - The web surface signs a JWT carrying the resolved role and stores it in
//     an HTTP-only cookie. The JSON surface exchanges credentials for an
//     opaque per-user key checked against the database on every request.
//   - Roles resolve from the profile role and the staff flag; admin-gated
//     routes re-check the database record instead of trusting claims.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the controllers
//     and command handlers to describe registration, verification, login, and
//     password reset events. Sinks run best-effort (errors are logged) so you
//     can forward to a database or queue without blocking authentication.
package accounts
