// Package middleware wraps a SessionStore with cross-cutting persistence
// behavior: PII masking and at-rest encryption of health data.
package middleware

import "github.com/meridianhealth/intake/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares to a store, first argument innermost.
func Chain(store ports.SessionStore, middlewares ...Middleware) ports.SessionStore {
	for _, m := range middlewares {
		store = m(store)
	}
	return store
}
