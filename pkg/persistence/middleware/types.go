package middleware

import "github.com/aretw0/freelingo/pkg/ports"

// Middleware allows wrapping a SessionRepository to add behavior.
type Middleware func(ports.SessionRepository) ports.SessionRepository

// Chain wraps repo so that the first middleware sees calls first.
func Chain(repo ports.SessionRepository, mws ...Middleware) ports.SessionRepository {
	for i := len(mws) - 1; i >= 0; i-- {
		repo = mws[i](repo)
	}
	return repo
}
