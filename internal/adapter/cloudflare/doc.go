// Package cloudflare identifies callers behind Cloudflare Access.
//
// Access terminates authentication at the edge and forwards the user's email
// in Cf-Access-Authenticated-User-Email together with a signed assertion in
// Cf-Access-Jwt-Assertion. The headers alone are trusted only when no team
// domain is configured; otherwise the assertion must verify against the
// team's certs endpoint.
package cloudflare
