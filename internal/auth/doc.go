// Package auth decides who is calling and obtains Coolify tokens.
//
// Resolver runs an ordered list of named strategies on every request; the
// first to produce an identity wins. Service implements the interactive
// logins (credentials, pasted token, OAuth hand-off) and turns upstream
// failures into messages a user can act on.
package auth
