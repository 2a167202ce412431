// Package domain defines the core types and the contracts between the auth,
// dashboard and adapter packages. No implementation code, just contracts.
package domain
