package httpapi

import (
	"time"

	"address-validator/internal/activitylog"
	"address-validator/internal/address"
	"address-validator/internal/locality"
	"address-validator/internal/state"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Lookup   locality.Lookuper
	Address  *address.Service
	Activity *activitylog.Service
	States   state.Store

	// CORSOrigin is sent on the GraphQL endpoint.
	CORSOrigin string
	// Development enables the GraphQL usage page.
	Development bool

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}
